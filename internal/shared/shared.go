// package shared holds the configuration, logging, database and error plumbing every other package builds on
package shared

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger returns the application logger writing to w, or [os.Stderr] when w is nil.
// Entries carry a timestamp and the calling file.
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
		TimeFormat:      time.DateTime,
	})
}

// WithLogger derives a child logger that adds kv to every entry.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ParseLogLevel maps a config level name to a [log.Level], defaulting to info.
func ParseLogLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NopLogger discards everything.
func NopLogger() *log.Logger {
	return log.New(io.Discard)
}

// GenerateID returns a random (v4) UUID string, used for OAuth state nonces, request ids and export runs.
func GenerateID() string {
	return uuid.NewString()
}
