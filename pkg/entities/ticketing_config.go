package entities

// TicketingConfig is the ticketing configuration for a guild. It is written
// wholesale by the setup command and never partially updated. The referenced
// entities can be deleted on Discord at any time, so consumers must validate
// them at use-time rather than trust the stored IDs.
type TicketingConfig struct {
	// CategoryID is the ID of the category that ticket channels are created under.
	CategoryID string `json:"category_id" bson:"category_id"`

	// LogChannelID is the ID of the channel that receives audit messages.
	LogChannelID string `json:"log_channel_id" bson:"log_channel_id"`

	// StaffRoleID is the ID of the role that can view and close any ticket.
	StaffRoleID string `json:"staff_role_id" bson:"staff_role_id"`
}

// Configured reports whether the guild has a usable ticketing configuration.
func (c TicketingConfig) Configured() bool {
	return c.CategoryID != "" && c.LogChannelID != ""
}
