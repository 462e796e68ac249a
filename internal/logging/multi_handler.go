package logging

import (
	"context"
	"log/slog"
)

// MultiHandler forwards each record to every child handler that wants
// it. It is how one module logger reaches stdout, the journal and the
// ring buffer at once.
type MultiHandler struct {
	children []slog.Handler
}

// NewMultiHandler creates a handler fanning out to the given handlers.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{children: handlers}
}

// Enabled reports true when at least one child would accept the level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.children {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every child that accepts its level. Each
// child gets its own clone so shared state in the record is safe.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.children {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

// WithAttrs returns a fan-out over children carrying the extra attrs.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	children := make([]slog.Handler, len(m.children))
	for i, h := range m.children {
		children[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{children: children}
}

// WithGroup returns a fan-out over children scoped to the group.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	children := make([]slog.Handler, len(m.children))
	for i, h := range m.children {
		children[i] = h.WithGroup(name)
	}
	return &MultiHandler{children: children}
}
