package logging

const (
	// KeyAppName is the logging key for the application name.
	KeyAppName = `app`

	// KeyError is the logging key for errors.
	KeyError = `err`

	// KeyDal is the logging key for the data access layer in use.
	KeyDal = `dal`

	// KeySignal is the logging key for OS signals.
	KeySignal = `signal`

	// KeyGuild is the logging key for a guild ID.
	KeyGuild = `guild_id`

	// KeyChannel is the logging key for a channel ID.
	KeyChannel = `channel_id`

	// KeyUser is the logging key for a user ID.
	KeyUser = `user_id`
)
