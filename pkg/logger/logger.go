package logger

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// New returns the process logger: JSON to stdout, debug level outside
// production-like environments. Call loops attach call_id and tenant_id via
// Logger.With rather than pulling values from context on every line.
func New(appEnv string) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

type ctxKey struct{}

// With stores a logger in ctx.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger stored in ctx, or slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ShutdownFlush exists so main has a single hook to drain buffered log
// output on exit; the stdout JSON handler has nothing to flush.
func ShutdownFlush(_ context.Context, _ time.Duration) error { return nil }
