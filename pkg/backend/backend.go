// SPDX-License-Identifier: GPL-3.0-or-later

// Package backend describes the read only lookups the macro engine needs
// from the data store. Implementations live in the subpackages.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/netdata/netdata/go/macros/pkg/macro/scope"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

// GlobalScope owns the global user macros and terminates every chain.
const GlobalScope scope.ID = "global"

var ErrNotFound = errors.New("not found")

// EntityKind selects the table FetchEntityAttributes reads.
type EntityKind string

const (
	EntityHost      EntityKind = "host"
	EntityInventory EntityKind = "inventory"
	EntityItem      EntityKind = "item"
)

// Host attributes.
const (
	AttrHost        = "host"
	AttrName        = "name"
	AttrDescription = "description"
	AttrIP          = "ip"
	AttrDNS         = "dns"
	AttrPort        = "port"
	AttrUseIP       = "useip"
)

// Item attributes.
const (
	AttrKey    = "key"
	AttrHostID = "hostid"
	AttrUnits  = "units"
)

// ItemAt is a historical value lookup: the last value of ItemID at or
// before Time (unix seconds).
type ItemAt struct {
	ItemID string
	Time   int64
}

// HostKey addresses an item by technical host name and item key.
type HostKey struct {
	Host string
	Key  string
}

// Function is a trigger function referenced as {ID} in expressions.
type Function struct {
	ID     string
	ItemID string
	Name   string
	Params string
}

type ScopeStore interface {
	// FetchDefinitions returns the user macros owned by the scopes.
	FetchDefinitions(ctx context.Context, ids []scope.ID) ([]scope.Definition, error)
	// FetchParentScopes returns one level of the scope graph. Every
	// requested id is present in the result.
	FetchParentScopes(ctx context.Context, ids []scope.ID) (map[scope.ID][]scope.ID, error)
}

type EntityStore interface {
	// FetchEntityAttributes returns attrs of the entities by id. Missing
	// entities and attributes are absent from the result.
	FetchEntityAttributes(ctx context.Context, kind EntityKind, ids []string, attrs []string) (map[string]map[string]string, error)
}

type MetricStore interface {
	FetchLatestMetricValues(ctx context.Context, itemIDs []string) (map[string]string, error)
	FetchMetricValuesAt(ctx context.Context, lookups []ItemAt) (map[ItemAt]string, error)
}

type ItemStore interface {
	FindItems(ctx context.Context, keys []HostKey) (map[HostKey]string, error)
	FetchFunctions(ctx context.Context, ids []string) (map[string]Function, error)
}

// Store is everything the engine reads.
type Store interface {
	ScopeStore
	EntityStore
	MetricStore
	ItemStore
}

var macroScanner = token.NewScanner(token.Grammars{UserMacros: true})

// ParseMacro parses a stored user macro, {$NAME}, {$NAME:"ctx"} or
// {$NAME:regex:"pattern"}, into a definition without scope and value.
func ParseMacro(s string) (scope.Definition, error) {
	tokens := macroScanner.Scan(s)
	if len(tokens) != 1 || tokens[0].Len != len(s) {
		return scope.Definition{}, fmt.Errorf("invalid user macro '%s'", s)
	}
	a := tokens[0].Attr
	return scope.Definition{Name: a.Name, Context: a.Context, ContextKind: a.ContextKind}, nil
}
