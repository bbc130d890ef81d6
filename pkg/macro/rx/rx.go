// SPDX-License-Identifier: GPL-3.0-or-later

// Package rx compiles the user supplied regular expressions found in macro
// contexts and macro functions. Patterns are checked for complexity before
// compilation and compiled programs are cached process wide.
package rx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/grafana/regexp"
)

const (
	maxNestingDepth  = 10
	maxPatternLength = 4096
	cacheSize        = 256
)

var ErrTooComplex = errors.New("regex pattern too complex")

type cache struct {
	mu      sync.RWMutex
	entries map[string]*regexp.Regexp
	order   []string
}

var global = &cache{entries: make(map[string]*regexp.Regexp)}

// checkComplexity rejects overlong patterns, unbalanced groups and deep
// group nesting.
func checkComplexity(pattern string) error {
	if len(pattern) > maxPatternLength {
		return fmt.Errorf("%w: %d chars (max %d)", ErrTooComplex, len(pattern), maxPatternLength)
	}

	depth, maxDepth := 0, 0
	escaped, inClass := false, false
	for _, ch := range pattern {
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case inClass:
			if ch == ']' {
				inClass = false
			}
		case ch == '[':
			inClass = true
		case ch == '(':
			depth++
			maxDepth = max(maxDepth, depth)
		case ch == ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced parentheses in %q", pattern)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses in %q", pattern)
	}
	if maxDepth > maxNestingDepth {
		return fmt.Errorf("%w: nesting %d levels (max %d)", ErrTooComplex, maxDepth, maxNestingDepth)
	}
	return nil
}

// Compile returns the compiled pattern from the cache or compiles it.
func Compile(pattern string) (*regexp.Regexp, error) {
	global.mu.RLock()
	re, ok := global.entries[pattern]
	global.mu.RUnlock()
	if ok {
		return re, nil
	}

	if err := checkComplexity(pattern); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if cached, ok := global.entries[pattern]; ok {
		return cached, nil
	}
	if len(global.entries) >= cacheSize {
		oldest := global.order[0]
		delete(global.entries, oldest)
		global.order = global.order[1:]
	}
	global.entries[pattern] = re
	global.order = append(global.order, pattern)

	return re, nil
}

// CompileFold compiles pattern case-insensitively.
func CompileFold(pattern string) (*regexp.Regexp, error) {
	if err := checkComplexity(pattern); err != nil {
		return nil, err
	}
	return Compile("(?i)" + pattern)
}

// MatchString reports whether pattern matches s. Invalid patterns never
// match.
func MatchString(pattern, s string) bool {
	re, err := Compile(pattern)
	return err == nil && re.MatchString(s)
}

// Reset empties the cache.
func Reset() {
	global.mu.Lock()
	defer global.mu.Unlock()

	global.entries = make(map[string]*regexp.Regexp)
	global.order = nil
}

func cached() int {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return len(global.entries)
}
