package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the injected component logger. It writes to stderr so stdout stays free for MCP stdio.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(os.Stderr).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Logger()
}
