package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "15:04:05.000"

// consoleHandler renders one line per record:
//
//	12:01:02.345 INF [run] component place_id: message key=value ...
//
// Run id, component, and place id are lifted into the prefix; remaining
// pairs follow in insertion order.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     *slog.LevelVar
	pairs     []pair
	prefix    string
	addSource bool
}

type pair struct {
	key   string
	value slog.Value
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	pairs := make([]pair, len(h.pairs), len(h.pairs)+record.NumAttrs())
	copy(pairs, h.pairs)
	record.Attrs(func(attr slog.Attr) bool {
		pairs = appendAttr(pairs, h.prefix, attr)
		return true
	})

	lifted := map[string]string{}
	rest := pairs[:0]
	for _, p := range pairs {
		switch p.key {
		case FieldRunID, FieldComponent, FieldPlaceID:
			if _, seen := lifted[p.key]; !seen {
				lifted[p.key] = valueString(p.value)
			}
		default:
			rest = append(rest, p)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	buf.WriteString(ts.Local().Format(consoleTimeLayout))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if id := lifted[FieldRunID]; id != "" {
		fmt.Fprintf(&buf, " [%s]", shortRunID(id))
	}
	if c := lifted[FieldComponent]; c != "" {
		buf.WriteByte(' ')
		buf.WriteString(c)
	}
	if id := lifted[FieldPlaceID]; id != "" {
		buf.WriteByte(' ')
		buf.WriteString(id)
	}
	buf.WriteString(": ")

	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	buf.WriteString(msg)

	if h.addSource {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&buf, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	for _, p := range rest {
		buf.WriteByte(' ')
		buf.WriteString(p.key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(p.value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.pairs = append([]pair(nil), h.pairs...)
	for _, attr := range attrs {
		clone.pairs = appendAttr(clone.pairs, h.prefix, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// appendAttr flattens groups into dotted keys.
func appendAttr(dst []pair, prefix string, attr slog.Attr) []pair {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	v := attr.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = prefix + attr.Key + "."
		}
		for _, child := range v.Group() {
			dst = appendAttr(dst, next, child)
		}
		return dst
	}
	return append(dst, pair{key: prefix + attr.Key, value: v})
}

func valueString(v slog.Value) string {
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
	return v.String()
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindString, slog.KindAny:
		s := valueString(v)
		if s == "" || strings.ContainsAny(s, " \t\n=\"") {
			return strconv.Quote(s)
		}
		return s
	default:
		return v.String()
	}
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERR"
	case level >= slog.LevelWarn:
		return "WRN"
	case level >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

// shortRunID keeps console lines narrow; the JSON sink carries the full id.
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
