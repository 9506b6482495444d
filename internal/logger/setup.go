package logger

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/regrada-ai/regrada-identity/internal/config"
)

// Configure builds the process logger from the logging section and sets the
// global level. out is usually os.Stdout.
func Configure(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := out
	if !cfg.Enabled {
		output = io.Discard
	} else if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Str("service", "regrada-identity").
		Logger()
}
