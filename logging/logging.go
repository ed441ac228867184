// Package logging configures the process-wide log15 root logger and hands out
// component loggers. The engine package never logs; every outer layer does.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inconshreveable/log15/v3"
)

// Supported output formats
const (
	FormatLogfmt   = "logfmt"
	FormatJSON     = "json"
	FormatTerminal = "terminal"
)

// Setup installs a handler on the root logger writing to stderr
func Setup(level, format string) error {
	return SetupWriter(os.Stderr, level, format)
}

// SetupWriter installs a handler on the root logger writing to w
func SetupWriter(w io.Writer, level, format string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	var f log15.Format
	switch strings.ToLower(format) {
	case "", FormatLogfmt:
		f = log15.LogfmtFormat()
	case FormatJSON:
		f = log15.JsonFormat()
	case FormatTerminal:
		f = log15.TerminalFormat()
	default:
		return fmt.Errorf("unknown log format: %s", format)
	}

	log15.Root().SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(w, f)))
	return nil
}

// ParseLevel accepts the log15 level names plus "warning" and "error"
func ParseLevel(level string) (log15.Lvl, error) {
	switch strings.ToLower(level) {
	case "":
		return log15.LvlInfo, nil
	case "warning":
		return log15.LvlWarn, nil
	case "error":
		return log15.LvlError, nil
	}
	lvl, err := log15.LvlFromString(strings.ToLower(level))
	if err != nil {
		return log15.LvlInfo, fmt.Errorf("unknown log level: %s", level)
	}
	return lvl, nil
}

// New returns a logger tagged with the given component name
func New(component string, ctx ...interface{}) log15.Logger {
	return log15.Root().New(append([]interface{}{"component", component}, ctx...)...)
}

// Discard returns a logger that drops everything, for tests and quiet tools
func Discard() log15.Logger {
	l := log15.New()
	l.SetHandler(log15.DiscardHandler())
	return l
}
