package logging

import (
	"context"
	"log/slog"
	"strings"
)

type runIDKey struct{}

// WithRunID tags ctx with a batch run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run identifier stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if id, ok := RunIDFromContext(ctx); ok {
		return []slog.Attr{slog.String(FieldRunID, id)}
	}
	return nil
}

// contextHandler copies context-scoped fields onto each record so callers
// can use logger.InfoContext without threading With() through every layer.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if fields := ContextFields(ctx); len(fields) > 0 {
		record = record.Clone()
		record.AddAttrs(fields...)
	}
	return h.Handler.Handle(ctx, record)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
