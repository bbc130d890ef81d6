// SPDX-License-Identifier: GPL-3.0-or-later

// Package funcs implements the functions that can be attached to a macro,
// e.g. {{ITEM.VALUE}.regsub("(\d+)", \1)}. A function never fails loudly:
// any validation problem yields UnresolvedSentinel.
package funcs

import (
	"time"
)

// UnresolvedSentinel replaces a value a function could not produce.
const UnresolvedSentinel = "*UNKNOWN*"

const (
	FuncRegsub  = "regsub"
	FuncIRegsub = "iregsub"
	FuncFmtNum  = "fmtnum"
	FuncFmtTime = "fmttime"
)

// Config holds the processor settings. The zero value uses the process
// local time zone and the wall clock.
type Config struct {
	Location *time.Location
	Now      func() time.Time
	Sentinel string
}

// Processor applies macro functions to resolved values.
type Processor struct {
	loc      *time.Location
	now      func() time.Time
	sentinel string
}

func New(cfg Config) *Processor {
	p := &Processor{
		loc:      cfg.Location,
		now:      cfg.Now,
		sentinel: cfg.Sentinel,
	}
	if p.loc == nil {
		p.loc = time.Local
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.sentinel == "" {
		p.sentinel = UnresolvedSentinel
	}
	return p
}

var defaultProcessor = New(Config{})

// Apply runs the named function with the default processor.
func Apply(name string, params []string, value string) string {
	return defaultProcessor.Apply(name, params, value)
}

// Supported reports whether name is a known function.
func Supported(name string) bool {
	switch name {
	case FuncRegsub, FuncIRegsub, FuncFmtNum, FuncFmtTime:
		return true
	}
	return false
}

func (p *Processor) Sentinel() string { return p.sentinel }

// Apply runs the named function on value.
func (p *Processor) Apply(name string, params []string, value string) string {
	var (
		out string
		ok  bool
	)
	switch name {
	case FuncRegsub:
		out, ok = regsub(params, value, false)
	case FuncIRegsub:
		out, ok = regsub(params, value, true)
	case FuncFmtNum:
		out, ok = fmtnum(params, value)
	case FuncFmtTime:
		out, ok = p.fmttime(params, value)
	}
	if !ok {
		return p.sentinel
	}
	return out
}
