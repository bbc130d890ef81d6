// SPDX-License-Identifier: GPL-3.0-or-later

// Package provider resolves the macros that are not user macros: host and
// inventory fields, item values, positional references, function ids,
// expression macros and discovery macros. Each provider sees all the
// tokens of a batch it handles and issues its own batched backend calls.
package provider

import (
	"context"
	"time"

	"github.com/netdata/netdata/go/macros/logger"
	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/macro/scope"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

// Entity is the owner of a text: what the macros of the text refer to.
type Entity struct {
	// HostID is the host the text belongs to.
	HostID string
	// Hosts are the hosts of a multi host context, e.g. the hosts of a
	// trigger expression in order. {HOST.NAME2} is Hosts[1]. Empty means
	// just HostID.
	Hosts []string
	// Scopes are the starting scopes for user macros. Empty means HostID.
	Scopes []scope.ID

	ItemID string
	// Items are the items of a multi item context, {ITEM.VALUE2} is
	// Items[1]. Empty means just ItemID.
	Items []string
	// ItemKey is the key of ItemID when the caller already has it.
	ItemKey string
	// EventTime is the unix time of the event, 0 when there is none.
	EventTime int64

	// LLD is the discovery row as a JSON object and LLDPaths maps LLD
	// macros to JSONPath expressions into it.
	LLD      string
	LLDPaths map[string]string
}

// UserScopes returns the starting scopes for user macros.
func (e *Entity) UserScopes() []scope.ID {
	if len(e.Scopes) > 0 {
		return e.Scopes
	}
	if e.HostID != "" {
		return []scope.ID{scope.ID(e.HostID)}
	}
	return nil
}

// Host returns the id of the nth related host, n 0 or 1 meaning the first.
func (e *Entity) Host(n int) (string, bool) {
	return nth(e.Hosts, e.HostID, n)
}

// Item returns the id of the nth related item, n 0 or 1 meaning the first.
func (e *Entity) Item(n int) (string, bool) {
	return nth(e.Items, e.ItemID, n)
}

func nth(list []string, single string, n int) (string, bool) {
	if n < 1 {
		n = 1
	}
	if len(list) == 0 {
		if n == 1 && single != "" {
			return single, true
		}
		return "", false
	}
	if n > len(list) {
		return "", false
	}
	return list[n-1], true
}

// Need is one token waiting for a value.
type Need struct {
	Entity *Entity
	Token  token.Token

	Value string
	Found bool
}

func (n *Need) Set(v string) {
	n.Value = v
	n.Found = true
}

// UserMacroLookup is one user macro embedded in a value a provider read,
// resolved against Scopes.
type UserMacroLookup struct {
	Scopes  []scope.ID
	Name    string
	Context *string
}

// Env is what providers get from the engine for one batch.
type Env struct {
	Store backend.Store
	Now   func() time.Time
	// UserMacros resolves user macros embedded in provider values, e.g.
	// {$SNMP.PORT} in a host interface port. Results are in lookup order.
	UserMacros func(ctx context.Context, lookups []UserMacroLookup) ([]scope.Resolved, error)
	Log        *logger.Logger
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// Provider resolves one family of macros.
type Provider interface {
	Name() string
	Handles(tok token.Token) bool
	// Resolve fills the needs it can. A need left unfound stays unresolved.
	// Only backend failures are returned as errors.
	Resolve(ctx context.Context, env *Env, needs []*Need) error
}

// Default returns all providers in the order the engine consults them.
func Default() []Provider {
	return []Provider{
		&HostProvider{},
		&InventoryProvider{},
		&ItemProvider{},
		&ReferenceProvider{},
		&FunctionIDProvider{},
		&ExprMacroProvider{},
		&LLDProvider{},
	}
}

func uniq(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
