// SPDX-License-Identifier: GPL-3.0-or-later

package scope

import (
	"slices"

	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

type macroDefs struct {
	exact map[string]Definition
	// regex is sorted by pattern.
	regex []Definition
	base  *Definition
}

// Arena holds the scopes and definitions fetched for one batch. It is not
// safe for concurrent use and must not outlive the batch.
type Arena struct {
	mask    string
	parents map[ID][]ID
	loaded  map[ID]bool
	defs    map[ID]map[string]*macroDefs
}

// NewArena returns an empty arena masking secret values with mask
// (MaskString when empty).
func NewArena(mask string) *Arena {
	if mask == "" {
		mask = MaskString
	}
	return &Arena{
		mask:    mask,
		parents: make(map[ID][]ID),
		loaded:  make(map[ID]bool),
		defs:    make(map[ID]map[string]*macroDefs),
	}
}

// SetParents records the parents of id in natural order.
func (a *Arena) SetParents(id ID, parents []ID) {
	a.parents[id] = SortedUnique(parents)
}

// Parents returns the known parents of id.
func (a *Arena) Parents(id ID) []ID {
	return a.parents[id]
}

// HasParents reports whether the parent links of id have been recorded.
func (a *Arena) HasParents(id ID) bool {
	_, ok := a.parents[id]
	return ok
}

// MarkLoaded records that all definitions of the scopes are in the arena.
func (a *Arena) MarkLoaded(ids ...ID) {
	for _, id := range ids {
		a.loaded[id] = true
	}
}

// Loaded reports whether the definitions of id have been fetched.
func (a *Arena) Loaded(id ID) bool {
	return a.loaded[id]
}

// AddDefinitions indexes definitions. Secret values are masked here, so
// nothing read back from the arena carries them. For a repeated
// (scope, name, context) the first definition is kept.
func (a *Arena) AddDefinitions(defs ...Definition) {
	for _, d := range defs {
		if d.Secret {
			d.Value = a.mask
		}

		byName, ok := a.defs[d.Scope]
		if !ok {
			byName = make(map[string]*macroDefs)
			a.defs[d.Scope] = byName
		}
		md, ok := byName[d.Name]
		if !ok {
			md = &macroDefs{}
			byName[d.Name] = md
		}

		switch d.ContextKind {
		case token.ContextNone:
			if md.base == nil {
				def := d
				md.base = &def
			}
		case token.ContextExact:
			if md.exact == nil {
				md.exact = make(map[string]Definition)
			}
			if _, ok := md.exact[d.Context]; !ok {
				md.exact[d.Context] = d
			}
		case token.ContextRegex:
			i, found := slices.BinarySearchFunc(md.regex, d.Context, func(e Definition, pattern string) int {
				return Compare(e.Context, pattern)
			})
			if !found {
				md.regex = slices.Insert(md.regex, i, d)
			}
		}
	}
}

func (a *Arena) lookup(id ID, name string) *macroDefs {
	return a.defs[id][name]
}
