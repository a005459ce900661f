// Package logger carries a zerolog logger through request and job contexts.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type contextKey struct{}

// New returns the console logger used when nothing else is configured.
func New() zerolog.Logger {
	return zerolog.New(console()).With().Timestamp().Caller().Logger()
}

// NewWithWriter returns a JSON logger writing to w.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// NewWithLevel creates a logger at the named level ("debug", "info", ...).
// pretty selects the console writer; otherwise output is JSON lines. On error
// the default logger is returned alongside it.
func NewWithLevel(level string, pretty bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return New(), fmt.Errorf("NewWithLevel: %w", err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = os.Stdout
	if pretty {
		w = console()
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Caller().Logger(), nil
}

func console() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
}

// WithContext returns a copy of ctx carrying log.
func WithContext(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext returns the logger carried by ctx, or New() when there is none.
func FromContext(ctx context.Context) zerolog.Logger {
	if log, ok := ctx.Value(contextKey{}).(zerolog.Logger); ok {
		return log
	}
	return New()
}

// WithUser tags the context logger with user_id and returns both.
func WithUser(ctx context.Context, uid string) (context.Context, zerolog.Logger) {
	log := FromContext(ctx).With().Str("user_id", uid).Logger()
	return WithContext(ctx, log), log
}
