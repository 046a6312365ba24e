package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iti-open-source/oceanlibrary-api/internal/config"
)

// New builds the process logger from the Log config block. Unknown levels
// fall back to info rather than failing startup.
func New(cfg config.Log) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Logger()
}
