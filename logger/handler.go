// SPDX-License-Identifier: GPL-3.0-or-later

package logger

import (
	"context"
	"io"
	"log/slog"
	"runtime"

	"github.com/lmittmann/tint"
)

// Format selects the record encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatTerminal Format = "terminal"
)

func newHandler(w io.Writer, f Format) slog.Handler {
	switch f {
	case FormatTerminal:
		return tint.NewHandler(w, &tint.Options{
			NoColor:     runtime.GOOS == "windows",
			AddSource:   true,
			Level:       Level,
			ReplaceAttr: terminalAttr,
		})
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: Level, ReplaceAttr: plainAttr})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level, ReplaceAttr: plainAttr})
	}
}

func plainAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if isJournal {
			return slog.Attr{}
		}
	case slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			return slog.String(a.Key, levelLabel(lvl))
		}
	}
	return a
}

func terminalAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		return slog.Attr{}
	case slog.SourceKey:
		if !Level.Enabled(slog.LevelDebug) {
			return slog.Attr{}
		}
	case slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == levelNotice {
			return slog.String(a.Key, "\u001B[34mNTC\u001B[0m")
		}
	}
	return a
}

// sourceHandler points record sources at the caller of the Logger method
// rather than at this package.
type sourceHandler struct {
	skip int
	next slog.Handler
}

func withSource(skip int, h slog.Handler) slog.Handler {
	if sh, ok := h.(*sourceHandler); ok {
		h = sh.next
	}
	return &sourceHandler{skip: skip, next: h}
}

func (h *sourceHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

func (h *sourceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return withSource(h.skip, h.next.WithAttrs(attrs))
}

func (h *sourceHandler) WithGroup(name string) slog.Handler {
	return withSource(h.skip, h.next.WithGroup(name))
}

func (h *sourceHandler) Handle(ctx context.Context, r slog.Record) error {
	var pc [1]uintptr
	runtime.Callers(h.skip, pc[:])
	r.PC = pc[0]
	return h.next.Handle(ctx, r)
}
