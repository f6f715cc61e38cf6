// Package obslog provides structured, component-scoped logging for the
// engine: zerolog behind a thin wrapper. An orchestration core multiplexing
// clients and a backend connection needs leveled, structured output to be
// operable.
package obslog

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.Mutex
	base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
)

// Configure sets the global log level and whether the console output is
// colored (pretty) or plain. Call once from cmd/ before constructing any
// component.
func Configure(level zerolog.Level, pretty bool) {
	mu.Lock()
	defer mu.Unlock()
	var w zerolog.ConsoleWriter
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	} else {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339, NoColor: true}
	}
	base = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// New returns a logger scoped to the given component name, e.g. "ipc",
// "engine", "gateway".
func New(component string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base.With().Str("component", component).Logger()
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// ContextWithRequestID stores a correlation id in ctx for
// RequestIDFromContext to read back. Loggers do not pick it up on their own;
// a log line carries it only where the caller adds it explicitly.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation id stashed by
// ContextWithRequestID, or "" if none is present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
