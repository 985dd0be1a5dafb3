package logging

import (
	"io"
	"log/slog"
	"os"
)

// Name is the name of the application that the logger is for.
type Name string

// Config is the configuration for a logger.
type Config struct {
	// name is the name of the application.
	name string

	// writer is the destination for log output.
	writer io.Writer

	// level is the minimum level that will be logged.
	level slog.Level
}

// NewConfig creates a new logging configuration.
func NewConfig(name Name) *Config {
	return &Config{
		name:   string(name),
		writer: os.Stdout,
		level:  slog.LevelDebug,
	}
}

// CommonLogger creates the logger used across the application. The logger
// writes JSON and carries the application name on every record.
func CommonLogger(c *Config) (*slog.Logger, error) {
	h := slog.NewJSONHandler(c.writer, &slog.HandlerOptions{
		Level: c.level,
	})

	l := slog.New(h).With(slog.String(KeyAppName, c.name))

	// Set the default logger so that packages without an injected logger
	// still log in the common format.
	slog.SetDefault(l)

	return l, nil
}
