package messages

const (
	// ErrUserErrorProcessing is the generic reply when processing an
	// interaction fails for reasons the user cannot act on.
	ErrUserErrorProcessing = "Something went wrong while processing your request. Please try again."

	// TicketsOutsideWindow is the rejection for open requests outside the
	// admission window.
	TicketsOutsideWindow = "You can only open tickets between 09:00 and 17:00 (reference time)."

	// TicketsNotConfigured is the reply for any ticket operation in a guild
	// without ticketing configuration.
	TicketsNotConfigured = "The ticket system is not configured for this server."

	// TicketsNotAuthorizedClose is the rejection for close attempts by
	// someone who is neither the requester nor staff.
	TicketsNotAuthorizedClose = "Only the ticket requester or the staff team can close this ticket."

	// TicketsStaffOnlyCommand is the rejection for the close command when
	// the user lacks the current staff role.
	TicketsStaffOnlyCommand = "Only the staff team can close tickets with this command."

	// TicketsOwnerOnlySetup is the rejection for the setup command when the
	// user is not the guild owner.
	TicketsOwnerOnlySetup = "Only the server owner can configure the ticket system."
)
