// SPDX-License-Identifier: GPL-3.0-or-later

package logger

import (
	"log/slog"
	"strings"
)

const (
	levelNotice = slog.LevelInfo + 2
	levelOff    = slog.Level(99)
)

var levelByName = map[string]slog.Level{
	"debug":     slog.LevelDebug,
	"info":      slog.LevelInfo,
	"notice":    levelNotice,
	"warn":      slog.LevelWarn,
	"warning":   slog.LevelWarn,
	"err":       slog.LevelError,
	"error":     slog.LevelError,
	"critical":  levelOff,
	"alert":     levelOff,
	"emergency": levelOff,
	"none":      levelOff,
	"off":       levelOff,
}

// Level is the process-wide log level shared by every Logger.
var Level = &level{}

type level struct {
	slog.LevelVar
}

func (l *level) Enabled(lvl slog.Level) bool { return lvl >= l.Level() }

// SetByName accepts the level names used by MACROS_LOG_LEVEL. It reports
// false and leaves the level alone for an unknown name.
func (l *level) SetByName(name string) bool {
	lvl, ok := levelByName[strings.ToLower(strings.TrimSpace(name))]
	if ok {
		l.Set(lvl)
	}
	return ok
}

func levelLabel(lvl slog.Level) string {
	if lvl == levelNotice {
		return "notice"
	}
	return strings.ToLower(lvl.String())
}
