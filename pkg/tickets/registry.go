package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/byteshield/lynx/pkg/dataaccess"
	"github.com/byteshield/lynx/pkg/entities"
	"github.com/byteshield/lynx/pkg/logging"
	"github.com/byteshield/lynx/pkg/tickets/monitoring"
)

// Registry is the active-ticket registry. The in-memory map is the
// authority for admission decisions; every mutation happens under the mutex,
// so TryCreate gives true check-and-insert semantics rather than a separate
// read and write with a window in between. The data access layer mirrors
// mutations so the registry survives a restart, but a mirror failure never
// reverses an admission already decided.
type Registry struct {
	// mtx guards tickets.
	mtx sync.Mutex

	// tickets maps a user ID to their open ticket.
	tickets map[string]*entities.Ticket

	// dal is the durable mirror. May be nil in tests.
	dal dataaccess.TicketDal

	// l is the logger.
	l *slog.Logger
}

// NewRegistry creates a new active-ticket registry.
func NewRegistry(l *slog.Logger, dal dataaccess.TicketDal) *Registry {
	if dal == nil {
		l.Warn("Ticket registry running without a durable mirror")
	}

	return &Registry{
		tickets: make(map[string]*entities.Ticket),
		dal:     dal,
		l:       l,
	}
}

// Load rehydrates the registry from the durable store. Called once on
// startup, before any interaction handlers are registered.
func (r *Registry) Load(ctx context.Context) error {
	if r.dal == nil {
		return nil
	}

	stored, err := r.dal.ListTickets(ctx)
	if err != nil {
		return fmt.Errorf("error loading tickets: %w", err)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, t := range stored {
		r.tickets[t.UserID] = t
	}
	monitoring.ActiveTickets.Set(float64(len(r.tickets)))

	r.l.Info("Loaded active tickets", slog.Int("count", len(r.tickets)))
	return nil
}

// Get returns the open ticket for the given user, if any.
func (r *Registry) Get(userID string) (*entities.Ticket, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	t, ok := r.tickets[userID]
	return t, ok
}

// TryCreate atomically inserts the ticket unless the user already has one.
// When two calls race for the same user, exactly one returns true.
func (r *Registry) TryCreate(ctx context.Context, ticket *entities.Ticket) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.tickets[ticket.UserID]; ok {
		return false
	}

	r.tickets[ticket.UserID] = ticket
	monitoring.ActiveTickets.Set(float64(len(r.tickets)))

	r.mirrorSave(ctx, ticket)
	return true
}

// Remove removes the ticket for the given user, reporting whether an entry
// existed. Removing an absent ticket is a no-op.
func (r *Registry) Remove(ctx context.Context, userID string) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.tickets[userID]; !ok {
		return false
	}

	delete(r.tickets, userID)
	monitoring.ActiveTickets.Set(float64(len(r.tickets)))

	r.mirrorDelete(ctx, userID)
	return true
}

// RemoveByChannel removes the ticket held in the given channel and returns
// it. Used by the close command, which knows the channel rather than the
// user. A miss is a no-op.
func (r *Registry) RemoveByChannel(ctx context.Context, channelID string) (*entities.Ticket, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for userID, t := range r.tickets {
		if t.ChannelID != channelID {
			continue
		}

		delete(r.tickets, userID)
		monitoring.ActiveTickets.Set(float64(len(r.tickets)))

		r.mirrorDeleteByChannel(ctx, channelID)
		return t, true
	}
	return nil, false
}

// Len returns the number of open tickets.
func (r *Registry) Len() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return len(r.tickets)
}

func (r *Registry) mirrorSave(ctx context.Context, ticket *entities.Ticket) {
	if r.dal == nil {
		return
	}
	if err := r.dal.SaveTicket(ctx, ticket); err != nil {
		r.l.Error("Error mirroring ticket to store",
			slog.String(logging.KeyUser, ticket.UserID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

func (r *Registry) mirrorDelete(ctx context.Context, userID string) {
	if r.dal == nil {
		return
	}
	if err := r.dal.DeleteTicketByUser(ctx, userID); err != nil {
		r.l.Error("Error removing ticket from store",
			slog.String(logging.KeyUser, userID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

func (r *Registry) mirrorDeleteByChannel(ctx context.Context, channelID string) {
	if r.dal == nil {
		return
	}
	if err := r.dal.DeleteTicketByChannel(ctx, channelID); err != nil {
		r.l.Error("Error removing ticket from store",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}
