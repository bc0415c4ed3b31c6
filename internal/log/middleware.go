package log

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// IntoContext attaches a request-scoped logger to the context, so handlers
// log with the request's fields already bound.
func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the request-scoped logger, or the process default when
// none is attached.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
