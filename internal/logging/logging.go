// Package logging builds the zerolog loggers used across flood.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the named level. Console mode
// renders human-readable lines with millisecond timestamps; otherwise each
// event is one JSON object.
func New(w io.Writer, level string, console bool) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.StampMilli}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Log formats accepted by ParseFormat.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ParseFormat reports whether format selects console output. An empty
// string means console.
func ParseFormat(format string) (console bool, err error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatConsole, "text":
		return true, nil
	case FormatJSON:
		return false, nil
	default:
		return false, fmt.Errorf("unknown log format %q", format)
	}
}

// ParseLevel maps debug, info, warn, error or disabled to a zerolog level.
// An empty string means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off", "none":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
