package logging

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Error renders err under the "error" key; a nil error is written as "<nil>".
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args converts attrs into the variadic form slog.Logger methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

func NewNop() *slog.Logger {
	return slog.New(nopHandler{})
}

// NewComponentLogger tags logger with a component attribute. A nil logger
// yields a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning that always carries event_type, error_hint,
// and impact. Missing fields get defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	defaults := []Attr{
		String(FieldEventType, eventType),
		String(FieldErrorHint, "check logs for details"),
		String(FieldImpact, "place left unresolved for this run"),
	}
	for _, d := range defaults {
		if !slices.ContainsFunc(attrs, func(a Attr) bool { return a.Key == d.Key }) {
			attrs = append(attrs, d)
		}
	}
	logger.Warn(msg, Args(attrs...)...)
}

// DecisionAttrs builds the attribute triple shared by match verdicts, cache
// hits, and conflict rejections.
func DecisionAttrs(decisionType, result, reason string) []Attr {
	return []Attr{
		String(FieldDecisionType, decisionType),
		String(FieldDecisionResult, result),
		String(FieldDecisionReason, reason),
	}
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (nopHandler) Handle(context.Context, slog.Record) error { return nil }

func (nopHandler) WithAttrs([]slog.Attr) slog.Handler { return nopHandler{} }

func (nopHandler) WithGroup(string) slog.Handler { return nopHandler{} }
