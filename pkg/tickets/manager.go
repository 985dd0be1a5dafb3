package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/byteshield/lynx/pkg/custom"
	"github.com/byteshield/lynx/pkg/dataaccess"
	"github.com/byteshield/lynx/pkg/entities"
	"github.com/byteshield/lynx/pkg/logging"
	"github.com/byteshield/lynx/pkg/tickets/monitoring"
)

// CloseEmoji is the emoji used on the close button. (Padlock)
const CloseEmoji = "\U0001F512"

// Manager wires the active-ticket registry, the guild configuration store
// and the Discord session into the ticket open and close flows.
type Manager struct {
	// l is the logger.
	l *slog.Logger

	// s is the Discord session slice the flows operate through.
	s ChannelSession

	// guilds is the guild configuration store.
	guilds dataaccess.GuildDal

	// registry is the active-ticket registry.
	registry *Registry

	// window is the admission window for opening tickets.
	window Window

	// selfID is the bot's own user ID, granted view on every ticket channel.
	selfID string
}

// NewManager creates a new ticket manager.
func NewManager(l *slog.Logger, s ChannelSession, guilds dataaccess.GuildDal, registry *Registry, window Window, selfID string) *Manager {
	return &Manager{
		l:        l,
		s:        s,
		guilds:   guilds,
		registry: registry,
		window:   window,
		selfID:   selfID,
	}
}

// Registry returns the manager's active-ticket registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// OpenTicket runs the ticket creation flow for the given member. On success
// the returned ticket is registered and its private channel exists with the
// welcome message and close button posted. Rejections are returned as
// ErrOutsideWindow, ErrNotConfigured or *DuplicateTicketError; none of them
// leave side effects behind.
func (m *Manager) OpenTicket(ctx context.Context, guildID string, member *discordgo.Member, now time.Time) (*entities.Ticket, error) {
	// The window gate is a pure predicate over the clock; it runs before
	// anything that could touch state.
	if !m.window.Contains(now) {
		monitoring.TicketsRejected.WithLabelValues("window").Inc()
		return nil, ErrOutsideWindow
	}

	guild, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		if dataaccess.IsNoDocuments(err) {
			monitoring.TicketsRejected.WithLabelValues("unconfigured").Inc()
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("error getting guild configuration: %w", err)
	}
	if !guild.Ticketing.Configured() {
		monitoring.TicketsRejected.WithLabelValues("unconfigured").Inc()
		return nil, ErrNotConfigured
	}

	// Duplicate check. An entry whose channel is gone is stale state left by
	// a manual deletion; heal it and carry on.
	if existing, ok := m.registry.Get(member.User.ID); ok {
		if _, err := m.s.Channel(existing.ChannelID); err == nil {
			monitoring.TicketsRejected.WithLabelValues("duplicate").Inc()
			return nil, &DuplicateTicketError{ChannelID: existing.ChannelID}
		} else if !isUnknownChannel(err) {
			return nil, fmt.Errorf("error checking existing ticket channel: %w", err)
		}

		m.l.Info("Removing stale ticket entry",
			slog.String(logging.KeyUser, member.User.ID),
			slog.String(logging.KeyChannel, existing.ChannelID),
		)
		m.registry.Remove(ctx, member.User.ID)
	}

	ticket := &entities.Ticket{
		UserID:       member.User.ID,
		Username:     member.User.Username,
		GuildID:      guildID,
		LogChannelID: guild.Ticketing.LogChannelID,
		StaffRoleID:  guild.Ticketing.StaffRoleID,
		OpenedAt:     custom.Datetime(now),
	}

	channel, err := m.provisionChannel(guildID, guild.Ticketing, ticket)
	if err != nil {
		return nil, fmt.Errorf("error creating ticket channel: %w", err)
	}
	ticket.ChannelID = channel.ID

	if err := m.sendWelcomeMessage(ticket); err != nil {
		// The channel is unusable without its close control; take it down
		// again rather than leave a half-provisioned ticket.
		m.deleteChannel(channel.ID)
		return nil, fmt.Errorf("error sending welcome message: %w", err)
	}

	// Commit. The registry decides the race; the loser's channel is an
	// orphan and has to go.
	if !m.registry.TryCreate(ctx, ticket) {
		m.deleteChannel(channel.ID)

		monitoring.TicketsRejected.WithLabelValues("duplicate").Inc()

		winner, ok := m.registry.Get(member.User.ID)
		if !ok {
			// The winner closed again before we looked; the requester can
			// simply retry.
			return nil, &DuplicateTicketError{}
		}
		return nil, &DuplicateTicketError{ChannelID: winner.ChannelID}
	}

	monitoring.TicketsOpened.Inc()

	m.l.Info("Ticket opened",
		slog.String(logging.KeyGuild, guildID),
		slog.String(logging.KeyUser, member.User.ID),
		slog.String(logging.KeyChannel, channel.ID),
	)
	return ticket, nil
}

// CloseByControl closes a ticket from its close button. Authorization is
// against the identity captured when the ticket was opened: the requester
// themselves, or a holder of the staff role as it stood at open time.
func (m *Manager) CloseByControl(ctx context.Context, binding CloseBinding, channelID string, actor *discordgo.Member) error {
	if actor.User.ID != binding.UserID && !memberHasRole(actor, binding.StaffRoleID) {
		return ErrNotAuthorized
	}

	// Registry first: if the channel deletion below fails, the member must
	// not stay blocked from opening a new ticket.
	found := m.registry.Remove(ctx, binding.UserID)

	if _, err := m.s.ChannelDelete(channelID); err != nil {
		// The channel being gone already is the end state a close wants; a
		// second queued click lands here.
		if !isUnknownChannel(err) {
			return fmt.Errorf("error deleting ticket channel: %w", err)
		}
		if !found {
			return nil
		}
	}

	monitoring.TicketsClosed.WithLabelValues("control").Inc()

	m.audit(binding.LogChannelID, fmt.Sprintf("Ticket closed by <@%s> for <@%s>.", actor.User.ID, binding.UserID))
	return nil
}

// CloseByCommand closes the ticket held in the given channel. Unlike the
// button, authorization is against the guild's current configuration: the
// staff role is looked up fresh, so role changes apply immediately to the
// command path.
func (m *Manager) CloseByCommand(ctx context.Context, guildID string, channelID string, actor *discordgo.Member) error {
	guild, err := m.guilds.GetGuildByID(ctx, guildID)
	if err != nil {
		if dataaccess.IsNoDocuments(err) {
			return ErrNotConfigured
		}
		return fmt.Errorf("error getting guild configuration: %w", err)
	}
	if !guild.Ticketing.Configured() {
		return ErrNotConfigured
	}

	if !memberHasRole(actor, guild.Ticketing.StaffRoleID) {
		return ErrNotAuthorized
	}

	// A second close of the same channel finds no entry; that is a no-op on
	// the registry and, with the channel gone too, on the whole flow.
	ticket, found := m.registry.RemoveByChannel(ctx, channelID)

	if _, err := m.s.ChannelDelete(channelID); err != nil {
		if !isUnknownChannel(err) {
			return fmt.Errorf("error deleting ticket channel: %w", err)
		}
		if !found {
			return nil
		}
	}

	monitoring.TicketsClosed.WithLabelValues("command").Inc()

	line := fmt.Sprintf("Ticket closed by <@%s> using the command.", actor.User.ID)
	if found {
		line = fmt.Sprintf("Ticket closed by <@%s> for <@%s> using the command.", actor.User.ID, ticket.UserID)
	}
	m.audit(guild.Ticketing.LogChannelID, line)
	return nil
}

// provisionChannel creates the private ticket channel under the configured
// category. Visibility: @everyone denied, the requester can view, send and
// attach, the staff role (when configured) can view and send, and the bot
// can view.
func (m *Manager) provisionChannel(guildID string, cfg entities.TicketingConfig, ticket *entities.Ticket) (*discordgo.Channel, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		// Deny @everyone from seeing the ticket.
		{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		// The requester can see and use the ticket.
		{
			ID:    ticket.UserID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles,
		},
		// The bot keeps access to its own ticket channel.
		{
			ID:    m.selfID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel,
		},
	}

	if cfg.StaffRoleID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    cfg.StaffRoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}

	return m.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 ticket.ChannelName(),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                ticket.Topic(),
		PermissionOverwrites: overwrites,
		ParentID:             cfg.CategoryID,
	})
}

// sendWelcomeMessage posts the welcome embed with the close button into the
// new ticket channel. The button's custom ID carries the captured close
// authorization identity, so it keeps working across restarts.
func (m *Manager) sendWelcomeMessage(ticket *entities.Ticket) error {
	binding := CloseBinding{
		UserID:       ticket.UserID,
		LogChannelID: ticket.LogChannelID,
		StaffRoleID:  ticket.StaffRoleID,
	}

	_, err := m.s.ChannelMessageSendComplex(ticket.ChannelID, &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title:       "Ticket Opened",
			Description: fmt.Sprintf("Hi <@%s>, a member of the team will be with you shortly.", ticket.UserID),
			Color:       0x5865F2,
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    fmt.Sprintf("%s Close Ticket", CloseEmoji),
						Style:    discordgo.DangerButton,
						CustomID: binding.CustomID(),
					},
				},
			},
		},
	})
	return err
}

// deleteChannel removes a channel we no longer want, logging rather than
// propagating failures: the callers are already on an error path.
func (m *Manager) deleteChannel(channelID string) {
	if _, err := m.s.ChannelDelete(channelID); err != nil {
		m.l.Error("Error deleting orphaned ticket channel",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// audit posts a line to the log channel. Delivery is best effort: the log
// channel can be deleted out from under us, and that must never fail the
// close that already happened.
func (m *Manager) audit(logChannelID string, line string) {
	if logChannelID == "" {
		return
	}
	if _, err := m.s.ChannelMessageSend(logChannelID, line); err != nil {
		m.l.Warn("Error delivering audit message",
			slog.String(logging.KeyChannel, logChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// memberHasRole reports whether the member holds the given role.
func memberHasRole(member *discordgo.Member, roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, r := range member.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}
