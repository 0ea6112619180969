package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// Session returns the logger of an interactive chat: colorized records on
// console at the --debug level, and every record down to Debug as JSON lines
// on file, the session's log in the config directory.
func Session(debug bool, console, file io.Writer) *slog.Logger {
	return Multi(
		New(WithDebug(debug), WithPretty(true), WithWriter(console)),
		New(WithLevel(slog.LevelDebug), WithJSON(true), WithWriter(file)),
	)
}

// multiHandler fans records out to several handlers, each keeping its own
// level.
type multiHandler struct {
	handlers []slog.Handler
}

// Multi returns a logger that dispatches every record to the handlers of
// loggers.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	handlers := make([]slog.Handler, len(loggers))
	for i, l := range loggers {
		handlers[i] = l.Handler()
	}
	return slog.New(&multiHandler{handlers: handlers})
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle offers r to every enabled handler. A failing handler, such as one
// writing to a full disk, does not keep the record from the others.
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	children := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		children[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: children}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	children := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		children[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: children}
}
