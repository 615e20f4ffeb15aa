package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// Levels accepted by New, lowest first.
var levels = map[string]pterm.LogLevel{
	"trace": pterm.LogLevelTrace,
	"debug": pterm.LogLevelDebug,
	"info":  pterm.LogLevelInfo,
	"warn":  pterm.LogLevelWarn,
	"error": pterm.LogLevelError,
	"off":   pterm.LogLevelDisabled,
}

// ParseLevel maps a level name onto a pterm level.
func ParseLevel(name string) (pterm.LogLevel, error) {
	lvl, ok := levels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return pterm.LogLevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

// New returns a logger writing to w (stderr when nil). format is "text" or
// "json".
func New(level, format string, w io.Writer) (*pterm.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	logger := pterm.DefaultLogger.
		WithLevel(lvl).
		WithWriter(w).
		WithTime(false)

	switch strings.ToLower(format) {
	case "", "text":
		logger = logger.WithFormatter(pterm.LogFormatterColorful)
	case "json":
		logger = logger.WithFormatter(pterm.LogFormatterJSON)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled).WithWriter(io.Discard)
}
