// SPDX-License-Identifier: GPL-3.0-or-later

package scope

import (
	"github.com/netdata/netdata/go/macros/pkg/macro/rx"
)

// Resolve looks up the user macro name with an optional context.
//
// The local chain is walked breadth first from start. At every scope an
// exact context match wins, then the first matching regex context in
// pattern order, then a base value: returned at once when no context was
// given, otherwise kept as candidate default if it is the nearest one.
// The global scope is searched the same way when the local chain has no
// context match. Precedence of the outcome: local context match, global
// context match, local default, global default.
func Resolve(a *Arena, name string, ctx *string, start []ID, global ID) Resolved {
	local := a.search(name, ctx, start, global)
	if local.Precision == Context || (ctx == nil && local.Found) {
		return local
	}

	g := a.search(name, ctx, []ID{global}, "")
	if g.Precision == Context {
		return g
	}
	if local.Found {
		return local
	}
	return g
}

// search walks the chain from start skipping the scope skip.
func (a *Arena) search(name string, ctx *string, start []ID, skip ID) Resolved {
	var candidate Resolved

	visited := make(map[ID]bool)
	if skip != "" {
		visited[skip] = true
	}

	for level := FirstLevel(start, visited); len(level) > 0; level = NextLevel(level, visited, a.Parents) {
		for _, id := range level {
			md := a.lookup(id, name)
			if md == nil {
				continue
			}
			if ctx != nil {
				if d, ok := md.exact[*ctx]; ok {
					return resolvedFrom(d, Context)
				}
				for _, d := range md.regex {
					if rx.MatchString(d.Context, *ctx) {
						return resolvedFrom(d, Context)
					}
				}
			}
			if md.base == nil {
				continue
			}
			if ctx == nil {
				return resolvedFrom(*md.base, Default)
			}
			if !candidate.Found {
				candidate = resolvedFrom(*md.base, Default)
			}
		}
	}
	return candidate
}

func resolvedFrom(d Definition, p Precision) Resolved {
	return Resolved{Value: d.Value, Found: true, Precision: p, Scope: d.Scope}
}
