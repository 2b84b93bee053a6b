// Package logger builds the zerolog loggers shared by the server and CLI.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New constructs a logger for level and format ("console" or "json").
// A nil writer means stderr.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("parse log level: %w", err)
		}
		lvl = parsed
	}
	if w == nil {
		w = os.Stderr
	}

	var base zerolog.Logger
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		base = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	case "json":
		base = zerolog.New(w)
	default:
		return zerolog.Logger{}, fmt.Errorf("unsupported log format %q", format)
	}
	return base.With().Timestamp().Str("service", "genie").Logger().Level(lvl), nil
}
