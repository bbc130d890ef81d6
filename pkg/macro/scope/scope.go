// SPDX-License-Identifier: GPL-3.0-or-later

// Package scope holds the user macro data model and the scope chain
// resolver: a macro is looked up in the starting scopes, then in their
// parents level by level, and finally in the global scope.
package scope

import (
	"errors"

	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

// MaskString is returned instead of the value of a secret macro.
const MaskString = "******"

// ErrCycle is reported when a scope inherits from itself.
var ErrCycle = errors.New("scope inheritance cycle")

// ID identifies a host, a template or the global scope.
type ID string

// Node is one scope with the scopes it inherits from.
type Node struct {
	ID      ID
	Parents []ID
}

type ContextKind = token.ContextKind

// Definition is one user macro value owned by a scope.
type Definition struct {
	Scope       ID
	Name        string
	Context     string
	ContextKind ContextKind
	Value       string
	Secret      bool
}

// Precision tells how a value was found.
type Precision uint8

const (
	Unresolved Precision = iota
	// Default is a base value, defined without context.
	Default
	// Context is an exact or regex context match.
	Context
)

func (p Precision) String() string {
	switch p {
	case Default:
		return "default"
	case Context:
		return "context"
	default:
		return "unresolved"
	}
}

// Resolved is the outcome of one lookup.
type Resolved struct {
	Value     string
	Found     bool
	Precision Precision
	// Scope is the scope owning the chosen definition.
	Scope ID
}
