package tickets

import (
	"fmt"
	"strings"
)

// CloseButtonID is the custom ID prefix for the close-ticket button.
const CloseButtonID = "close_ticket_button"

// bindingSeparator joins the binding fields inside the custom ID. Discord
// IDs are numeric, so the separator cannot collide with a field.
const bindingSeparator = ":"

// CloseBinding is the authorization identity a close button is bound to.
// The values are captured when the ticket is opened and travel inside the
// button's custom ID, so the button keeps working across process restarts
// and is unaffected by later configuration changes.
type CloseBinding struct {
	// UserID is the user that opened the ticket.
	UserID string

	// LogChannelID is the audit log channel at open time.
	LogChannelID string

	// StaffRoleID is the staff role at open time. May be empty when the
	// guild was configured without one.
	StaffRoleID string
}

// CustomID encodes the binding into the button's custom ID.
func (b CloseBinding) CustomID() string {
	return strings.Join([]string{CloseButtonID, b.UserID, b.LogChannelID, b.StaffRoleID}, bindingSeparator)
}

// ParseCloseBinding decodes a close-button custom ID.
func ParseCloseBinding(customID string) (CloseBinding, error) {
	parts := strings.Split(customID, bindingSeparator)
	if len(parts) != 4 || parts[0] != CloseButtonID {
		return CloseBinding{}, fmt.Errorf("malformed close binding %q", customID)
	}

	b := CloseBinding{
		UserID:       parts[1],
		LogChannelID: parts[2],
		StaffRoleID:  parts[3],
	}
	if b.UserID == "" || b.LogChannelID == "" {
		return CloseBinding{}, fmt.Errorf("malformed close binding %q", customID)
	}
	return b, nil
}
