package capture

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

type boundAttr struct {
	groups []string
	attr   slog.Attr
}

// handler tracks records and forwards them to the original handler.
type handler struct {
	track    func(payload any)
	forward  slog.Handler
	minLevel slog.Leveler
	suppress bool

	bound  []boundAttr
	groups []string
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.minLevel.Level() {
		return true
	}
	return !h.suppress && h.forward.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.minLevel.Level() {
		h.track(h.record(r))
	}

	if h.suppress || !h.forward.Enabled(ctx, r.Level) {
		return nil
	}
	return h.forward.Handle(ctx, r)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	h2 := h.clone()
	for _, a := range attrs {
		h2.bound = append(h2.bound, boundAttr{groups: h.groups, attr: a})
	}
	h2.forward = h.forward.WithAttrs(attrs)
	return h2
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	h2 := h.clone()
	h2.groups = append(slices.Clip(h.groups), name)
	h2.forward = h.forward.WithGroup(name)
	return h2
}

func (h *handler) clone() *handler {
	h2 := *h
	h2.bound = slices.Clip(h.bound)
	h2.groups = slices.Clip(h.groups)
	return &h2
}

// record converts a slog record into the tracked payload.
func (h *handler) record(r slog.Record) Record {
	args := make(map[string]any)
	for _, b := range h.bound {
		putAttr(args, b.groups, b.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		putAttr(args, h.groups, a)
		return true
	})
	if len(args) == 0 {
		args = nil
	}

	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	return Record{
		Severity:       SeverityOf(r.Level),
		Trace:          r.Message,
		TraceArguments: args,
		Time:           t,
	}
}

func putAttr(dst map[string]any, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	for _, g := range groups {
		sub, ok := dst[g].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			dst[g] = sub
		}
		dst = sub
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		if len(attrs) == 0 {
			return
		}
		// An unnamed group inlines its members.
		var sub []string
		if a.Key != "" {
			sub = []string{a.Key}
		}
		for _, ga := range attrs {
			putAttr(dst, sub, ga)
		}
		return
	}

	v := a.Value.Any()
	if err, ok := v.(error); ok {
		v = err.Error()
	}
	dst[a.Key] = v
}
