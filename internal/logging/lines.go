package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TimestampFormat is the layout used by the severity line handlers.
const TimestampFormat = "2006-01-02 15:04:05"

// Severity names written by the line handlers.
const (
	SeverityDebug   = "DEBUG"
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// severity maps a slog level onto the line handlers' severity names.
func severity(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return SeverityDebug
	case level < slog.LevelWarn:
		return SeverityInfo
	case level < slog.LevelError:
		return SeverityWarning
	default:
		return SeverityError
	}
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(TimestampFormat)
}

// lineState carries attributes and groups bound with WithAttrs/WithGroup.
type lineState struct {
	attrs  []slog.Attr
	prefix string
}

func (s lineState) withAttrs(attrs []slog.Attr) lineState {
	bound := make([]slog.Attr, 0, len(s.attrs)+len(attrs))
	bound = append(bound, s.attrs...)
	for _, a := range attrs {
		a.Key = s.prefix + a.Key
		bound = append(bound, a)
	}
	return lineState{attrs: bound, prefix: s.prefix}
}

func (s lineState) withGroup(name string) lineState {
	if name == "" {
		return s
	}
	return lineState{attrs: s.attrs, prefix: s.prefix + name + "."}
}

// message renders the record message followed by " key=value" pairs.
func (s lineState) message(r slog.Record) string {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range s.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, s.prefix, a)
		return true
	})
	return b.String()
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := prefix
		if a.Key != "" {
			group += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, group, ga)
		}
		return
	}
	fmt.Fprintf(b, " %s%s=%v", prefix, a.Key, a.Value.Any())
}

// fanout delivers each record to every handler that accepts its level.
type fanout []slog.Handler

// Fanout returns a handler that duplicates records to all of hs.
func Fanout(hs ...slog.Handler) slog.Handler {
	return fanout(hs)
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
