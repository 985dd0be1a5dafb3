package entities

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/byteshield/lynx/pkg/custom"
)

// Ticket is an open support ticket. There is at most one per user at any
// time; the registry enforces that.
type Ticket struct {
	// UserID is the ID of the user that opened the ticket. This is the
	// registry key.
	UserID string `json:"user_id" bson:"user_id"`

	// Username is the username of the user that opened the ticket.
	Username string `json:"username" bson:"username"`

	// GuildID is the ID of the guild that the ticket is in.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// ChannelID is the ID of the private channel provisioned for the ticket.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// LogChannelID is the audit log channel, captured when the ticket was
	// opened. The close button uses this value rather than the current
	// configuration, so already-open tickets are unaffected by later
	// configuration changes.
	LogChannelID string `json:"log_channel_id" bson:"log_channel_id"`

	// StaffRoleID is the staff role captured when the ticket was opened.
	// Same capture semantics as LogChannelID.
	StaffRoleID string `json:"staff_role_id" bson:"staff_role_id"`

	// OpenedAt is the time that the ticket was opened.
	OpenedAt custom.Datetime `json:"opened_at" bson:"opened_at"`
}

// ChannelName derives the name for the ticket channel. The name is traceable
// to the requester, and the random suffix disambiguates tickets from
// different requesters opened in the same instant.
func (t *Ticket) ChannelName() string {
	return fmt.Sprintf("ticket-%s-%d", sanitizeName(t.Username), 1000+rand.Intn(9000))
}

// Topic is the topic set on the ticket channel.
func (t *Ticket) Topic() string {
	return fmt.Sprintf("Ticket opened by %s", t.Username)
}

// sanitizeName lowers a username into Discord's channel-name alphabet.
func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		}
	}

	if sb.Len() == 0 {
		return "member"
	}
	return sb.String()
}
