package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/byteshield/lynx/pkg/dataaccess/monitoring"
	"github.com/byteshield/lynx/pkg/entities"
	"github.com/byteshield/lynx/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ticketDalName = "ticket_dal"

// TicketDal is the durable mirror of the active-ticket registry. The
// registry owns the admission decisions; this layer only has to keep the
// stored documents in step so the registry can be rehydrated on startup.
type TicketDal interface {
	// SaveTicket saves a ticket, keyed by the opening user.
	SaveTicket(ctx context.Context, ticket *entities.Ticket) error

	// DeleteTicketByUser deletes the ticket opened by the given user.
	// Deleting an absent ticket is not an error.
	DeleteTicketByUser(ctx context.Context, userID string) error

	// DeleteTicketByChannel deletes the ticket held in the given channel.
	// Deleting an absent ticket is not an error.
	DeleteTicketByChannel(ctx context.Context, channelID string) error

	// ListTickets returns all stored tickets.
	ListTickets(ctx context.Context) ([]*entities.Ticket, error)
}

type ticketDalImpl struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal(logger *slog.Logger) TicketDal {
	l := logger.With(slog.String(logging.KeyDal, ticketDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &ticketDalImpl{
		l:      l,
		client: MongoDB,
	}
}

func (d *ticketDalImpl) SaveTicket(ctx context.Context, ticket *entities.Ticket) error {
	// Get the tickets collection.
	collection := d.client.Database(mongoDatabase).Collection("tickets")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "save_ticket", mongoDatabase, "tickets").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "save_ticket", mongoDatabase, "tickets"))
	defer t.ObserveDuration()

	// Save the ticket.
	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx, bson.M{"user_id": ticket.UserID}, bson.M{"$set": ticket}, opts)
	if err != nil {
		return fmt.Errorf("error updating ticket: %w", err)
	}
	return nil
}

func (d *ticketDalImpl) DeleteTicketByUser(ctx context.Context, userID string) error {
	// Get the tickets collection.
	collection := d.client.Database(mongoDatabase).Collection("tickets")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "delete_ticket_by_user", mongoDatabase, "tickets").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "delete_ticket_by_user", mongoDatabase, "tickets"))
	defer t.ObserveDuration()

	// Delete the ticket. DeleteOne on a missing document deletes nothing and
	// returns no error, which is the idempotency we want here.
	if _, err := collection.DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("error deleting ticket: %w", err)
	}
	return nil
}

func (d *ticketDalImpl) DeleteTicketByChannel(ctx context.Context, channelID string) error {
	// Get the tickets collection.
	collection := d.client.Database(mongoDatabase).Collection("tickets")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "delete_ticket_by_channel", mongoDatabase, "tickets").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "delete_ticket_by_channel", mongoDatabase, "tickets"))
	defer t.ObserveDuration()

	// Delete the ticket.
	if _, err := collection.DeleteOne(ctx, bson.M{"channel_id": channelID}); err != nil {
		return fmt.Errorf("error deleting ticket: %w", err)
	}
	return nil
}

func (d *ticketDalImpl) ListTickets(ctx context.Context) ([]*entities.Ticket, error) {
	// Get the tickets collection.
	collection := d.client.Database(mongoDatabase).Collection("tickets")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "list_tickets", mongoDatabase, "tickets").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "list_tickets", mongoDatabase, "tickets"))
	defer t.ObserveDuration()

	// Get the tickets.
	cursor, err := collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error listing tickets: %w", err)
	}

	var tickets []*entities.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("error decoding tickets: %w", err)
	}
	return tickets, nil
}

// IsNoDocuments reports whether the error is a missing-document lookup.
func IsNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
