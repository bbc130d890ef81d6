// SPDX-License-Identifier: GPL-3.0-or-later

package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
)

var isJournal = isStderrConnectedToJournal()

var appAttr = slog.String("app", "macros")

// Logger is a printf-style wrapper around slog. A nil *Logger is valid and
// discards everything, so components can embed it without wiring one.
type Logger struct {
	sl *slog.Logger
}

// New returns a logger writing to stderr. Terminals get the colored tint
// handler, everything else (including journald) gets logfmt text.
func New() *Logger {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return NewWithFormat(os.Stderr, FormatTerminal)
	}
	return NewWithWriter(os.Stderr)
}

// NewWithWriter returns a logfmt logger writing to w.
func NewWithWriter(w io.Writer) *Logger {
	return NewWithFormat(w, FormatText)
}

func NewWithFormat(w io.Writer, f Format) *Logger {
	if f == FormatTerminal {
		return &Logger{sl: slog.New(withSource(6, newHandler(w, f)))}
	}
	return &Logger{sl: slog.New(newHandler(w, f)).With(appAttr)}
}

func (l *Logger) With(args ...any) *Logger {
	if l.isNil() {
		return l
	}
	return &Logger{sl: l.sl.With(args...)}
}

func (l *Logger) Error(a ...any)   { l.log(slog.LevelError, fmt.Sprint(a...)) }
func (l *Logger) Warning(a ...any) { l.log(slog.LevelWarn, fmt.Sprint(a...)) }
func (l *Logger) Notice(a ...any)  { l.log(levelNotice, fmt.Sprint(a...)) }
func (l *Logger) Info(a ...any)    { l.log(slog.LevelInfo, fmt.Sprint(a...)) }
func (l *Logger) Debug(a ...any)   { l.log(slog.LevelDebug, fmt.Sprint(a...)) }

func (l *Logger) Errorf(format string, a ...any)   { l.log(slog.LevelError, fmt.Sprintf(format, a...)) }
func (l *Logger) Warningf(format string, a ...any) { l.log(slog.LevelWarn, fmt.Sprintf(format, a...)) }
func (l *Logger) Noticef(format string, a ...any)  { l.log(levelNotice, fmt.Sprintf(format, a...)) }
func (l *Logger) Infof(format string, a ...any)    { l.log(slog.LevelInfo, fmt.Sprintf(format, a...)) }
func (l *Logger) Debugf(format string, a ...any)   { l.log(slog.LevelDebug, fmt.Sprintf(format, a...)) }

func (l *Logger) log(level slog.Level, msg string) {
	if l.isNil() || !Level.Enabled(level) {
		return
	}
	l.sl.Log(context.Background(), level, msg)
}

func (l *Logger) isNil() bool { return l == nil || l.sl == nil }
