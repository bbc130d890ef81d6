// SPDX-License-Identifier: GPL-3.0-or-later

// Package batch resolves many user macro requests at once.
//
// The scope graph is expanded breadth first across the whole batch: the
// scopes needed by every request at depth k are fetched in one go before
// depth k+1 is looked at. The number of backend round trips is bounded by
// the depth of the deepest chain, whatever the number of requests.
package batch

import (
	"context"
	"fmt"
	"slices"

	"github.com/gohugoio/hashstructure"

	"github.com/netdata/netdata/go/macros/logger"
	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/macro/scope"
)

// Request is a single user macro lookup.
type Request struct {
	// Key is an opaque caller tag, used in logs only.
	Key     string
	Scopes  []scope.ID
	Name    string
	Context *string
}

// Stats describes the work done for one batch.
type Stats struct {
	// RoundTrips counts level fetches plus the global fetch. A level fetch
	// reads definitions and parent links of all new scopes of that level.
	RoundTrips int
	// Calls counts individual backend calls.
	Calls int
	// Levels is the depth of the deepest chain.
	Levels int
	// Shapes is the number of distinct starting scope lists.
	Shapes int
	// Scopes is the number of scopes fetched.
	Scopes int
}

// Result holds one value per request, in request order.
type Result struct {
	Values []scope.Resolved
	Stats  Stats
}

type Config struct {
	Global scope.ID
	Mask   string
}

// Coordinator runs batches against a scope store. It keeps no state
// between batches and is safe for concurrent use.
type Coordinator struct {
	*logger.Logger

	store  backend.ScopeStore
	global scope.ID
	mask   string
}

func New(cfg Config, store backend.ScopeStore, log *logger.Logger) *Coordinator {
	if cfg.Global == "" {
		cfg.Global = backend.GlobalScope
	}
	return &Coordinator{
		Logger: log,
		store:  store,
		global: cfg.Global,
		mask:   cfg.Mask,
	}
}

type shape struct {
	scopes   []scope.ID
	visited  map[scope.ID]bool
	frontier []scope.ID
}

// Resolve resolves all requests. A backend error or an inheritance cycle
// fails the whole batch and no values are returned.
func (c *Coordinator) Resolve(ctx context.Context, reqs []Request) (*Result, error) {
	res := &Result{Values: make([]scope.Resolved, len(reqs))}
	if len(reqs) == 0 {
		return res, nil
	}

	arena := scope.NewArena(c.mask)

	shapes, err := groupByShape(reqs)
	if err != nil {
		return nil, err
	}
	res.Stats.Shapes = len(shapes)

	if err := c.expand(ctx, arena, shapes, &res.Stats); err != nil {
		return nil, err
	}

	for _, sh := range shapes {
		if err := scope.CheckCycles(sh.scopes, arena.Parents); err != nil {
			return nil, err
		}
	}

	// Without global data loaded Resolve yields the local chain outcome.
	var pending []int
	for i, req := range reqs {
		v := scope.Resolve(arena, req.Name, req.Context, req.Scopes, c.global)
		if v.Precision == scope.Context || (req.Context == nil && v.Found) {
			res.Values[i] = v
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) > 0 {
		if err := c.fetchDefinitions(ctx, arena, []scope.ID{c.global}, &res.Stats); err != nil {
			return nil, err
		}
		for _, i := range pending {
			req := reqs[i]
			res.Values[i] = scope.Resolve(arena, req.Name, req.Context, req.Scopes, c.global)
		}
	}

	c.Debugf("batch of %d requests: %d shapes, %d levels, %d scopes, %d round trips",
		len(reqs), res.Stats.Shapes, res.Stats.Levels, res.Stats.Scopes, res.Stats.RoundTrips)

	return res, nil
}

// expand fetches the scope graph level by level for all shapes together.
func (c *Coordinator) expand(ctx context.Context, arena *scope.Arena, shapes []*shape, stats *Stats) error {
	for _, sh := range shapes {
		sh.visited = map[scope.ID]bool{c.global: true}
		sh.frontier = scope.FirstLevel(sh.scopes, sh.visited)
	}

	for {
		var need []scope.ID
		active := false
		for _, sh := range shapes {
			if len(sh.frontier) == 0 {
				continue
			}
			active = true
			for _, id := range sh.frontier {
				if !arena.HasParents(id) {
					need = append(need, id)
				}
			}
		}
		if !active {
			return nil
		}
		stats.Levels++

		if need = scope.SortedUnique(need); len(need) > 0 {
			if err := c.fetchLevel(ctx, arena, need, stats); err != nil {
				return err
			}
		}

		for _, sh := range shapes {
			sh.frontier = scope.NextLevel(sh.frontier, sh.visited, arena.Parents)
		}
	}
}

func (c *Coordinator) fetchLevel(ctx context.Context, arena *scope.Arena, ids []scope.ID, stats *Stats) error {
	if err := c.fetchDefinitions(ctx, arena, ids, stats); err != nil {
		return err
	}

	parents, err := c.store.FetchParentScopes(ctx, ids)
	stats.Calls++
	if err != nil {
		return fmt.Errorf("fetching parent scopes of %d scopes: %w", len(ids), err)
	}
	for _, id := range ids {
		ps := slices.DeleteFunc(slices.Clone(parents[id]), func(p scope.ID) bool { return p == c.global })
		arena.SetParents(id, ps)
	}
	stats.Scopes += len(ids)

	return nil
}

// fetchDefinitions counts as a round trip on its own; fetchLevel pairs it
// with the parent fetch of the same level.
func (c *Coordinator) fetchDefinitions(ctx context.Context, arena *scope.Arena, ids []scope.ID, stats *Stats) error {
	defs, err := c.store.FetchDefinitions(ctx, ids)
	stats.Calls++
	stats.RoundTrips++
	if err != nil {
		return fmt.Errorf("fetching macros of %d scopes: %w", len(ids), err)
	}

	owned := make(map[scope.ID]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	for _, d := range defs {
		if !owned[d.Scope] {
			c.Debugf("ignoring macro {$%s} of unrequested scope '%s'", d.Name, d.Scope)
			continue
		}
		arena.AddDefinitions(d)
	}
	arena.MarkLoaded(ids...)

	return nil
}

// groupByShape groups requests by their starting scope list. Requests
// sharing a shape share the frontier bookkeeping of the expansion.
func groupByShape(reqs []Request) ([]*shape, error) {
	byHash := make(map[uint64][]*shape)
	var shapes []*shape

	for _, req := range reqs {
		h, err := hashstructure.Hash(req.Scopes, nil)
		if err != nil {
			return nil, fmt.Errorf("hashing scopes of request '%s': %w", req.Key, err)
		}

		var sh *shape
		for _, cand := range byHash[h] {
			if slices.Equal(cand.scopes, req.Scopes) {
				sh = cand
				break
			}
		}
		if sh == nil {
			sh = &shape{scopes: req.Scopes}
			byHash[h] = append(byHash[h], sh)
			shapes = append(shapes, sh)
		}
	}
	return shapes, nil
}
