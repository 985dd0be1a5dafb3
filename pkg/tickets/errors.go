package tickets

import (
	"errors"
	"fmt"

	"github.com/Jacobbrewer1/discordgo"
)

var (
	// ErrOutsideWindow is returned when a ticket is requested outside the
	// admission window.
	ErrOutsideWindow = errors.New("outside the ticket opening hours")

	// ErrNotConfigured is returned when the guild has no ticketing
	// configuration. This is a user-visible condition, not a failure.
	ErrNotConfigured = errors.New("ticketing is not configured for this guild")

	// ErrNotAuthorized is returned when the acting user may not close the
	// ticket.
	ErrNotAuthorized = errors.New("not authorized to close this ticket")
)

// DuplicateTicketError is returned when the requester already has an open
// ticket. ChannelID references the existing ticket channel so the rejection
// can point the user at it.
type DuplicateTicketError struct {
	ChannelID string
}

func (e *DuplicateTicketError) Error() string {
	return fmt.Sprintf("ticket already open in channel %s", e.ChannelID)
}

// isUnknownChannel reports whether the error means the channel no longer
// exists on Discord. A stale registry entry pointing at such a channel is
// self-healed rather than surfaced.
func isUnknownChannel(err error) bool {
	er := new(discordgo.RESTError)
	// General is thrown when a 404 is returned.
	return errors.As(err, &er) && er.Message != nil &&
		(er.Message.Code == discordgo.ErrCodeUnknownChannel || er.Message.Code == discordgo.ErrCodeGeneralError)
}
