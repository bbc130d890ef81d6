// SPDX-License-Identifier: GPL-3.0-or-later

// Package filestore is a backend read from a YAML document. It is meant
// for small deployments, tests and the command line tool.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/netdata/netdata/go/macros/logger"
	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/macro/scope"
)

type index struct {
	parents   map[scope.ID][]scope.ID
	defs      map[scope.ID][]scope.Definition
	hosts     map[string]map[string]string
	inventory map[string]map[string]string
	items     map[string]map[string]string
	latest    map[string]string
	history   map[string][]Sample
	byKey     map[backend.HostKey]string
	functions map[string]backend.Function
}

// Store serves backend lookups from an in-memory index of a Document. It
// is safe for concurrent use; Reload swaps the index atomically.
type Store struct {
	*logger.Logger

	path string

	mu  sync.RWMutex
	idx *index
}

// New returns a store for the YAML file at path. The file is read by Load.
func New(path string, log *logger.Logger) *Store {
	return &Store{Logger: log, path: path, idx: emptyIndex()}
}

// Parse builds a store from an in-memory document.
func Parse(data []byte) (*Store, error) {
	s := &Store{idx: emptyIndex()}
	if err := s.load(data); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Load reads and indexes the file. On error the previous index is kept.
func (s *Store) Load() error {
	if s.path == "" {
		return errors.New("filestore: no path")
	}
	bs, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("filestore: %w", err)
	}
	if err := s.load(bs); err != nil {
		return fmt.Errorf("filestore: '%s': %w", s.path, err)
	}
	return nil
}

func (s *Store) load(data []byte) error {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	idx, err := buildIndex(&doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.idx = idx
	s.mu.Unlock()
	return nil
}

func (s *Store) index() *index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx
}

func emptyIndex() *index {
	return &index{
		parents:   make(map[scope.ID][]scope.ID),
		defs:      make(map[scope.ID][]scope.Definition),
		hosts:     make(map[string]map[string]string),
		inventory: make(map[string]map[string]string),
		items:     make(map[string]map[string]string),
		latest:    make(map[string]string),
		history:   make(map[string][]Sample),
		byKey:     make(map[backend.HostKey]string),
		functions: make(map[string]backend.Function),
	}
}

func buildIndex(doc *Document) (*index, error) {
	idx := emptyIndex()

	addScope := func(sc Scope) error {
		id := scope.ID(sc.ID)
		if id == "" {
			return errors.New("scope without id")
		}
		if _, ok := idx.parents[id]; ok {
			return fmt.Errorf("duplicate scope '%s'", id)
		}
		parents := make([]scope.ID, 0, len(sc.Templates))
		for _, p := range sc.Templates {
			parents = append(parents, scope.ID(p))
		}
		idx.parents[id] = parents

		for _, m := range sc.Macros {
			def, err := backend.ParseMacro(m.Macro)
			if err != nil {
				return fmt.Errorf("scope '%s': %w", id, err)
			}
			def.Scope, def.Value, def.Secret = id, m.Value, m.Secret
			idx.defs[id] = append(idx.defs[id], def)
		}
		return nil
	}

	doc.Global.ID = string(backend.GlobalScope)
	doc.Global.Templates = nil
	if err := addScope(doc.Global); err != nil {
		return nil, err
	}
	for _, t := range doc.Templates {
		if err := addScope(t); err != nil {
			return nil, err
		}
	}

	hostNames := make(map[string]string)
	for _, h := range doc.Hosts {
		if err := addScope(h.Scope); err != nil {
			return nil, err
		}
		useIP := "1"
		if h.Interface.UseIP != nil && !*h.Interface.UseIP {
			useIP = "0"
		}
		idx.hosts[h.ID] = map[string]string{
			backend.AttrHost:        h.Host,
			backend.AttrName:        h.Name,
			backend.AttrDescription: h.Description,
			backend.AttrIP:          h.Interface.IP,
			backend.AttrDNS:         h.Interface.DNS,
			backend.AttrPort:        h.Interface.Port,
			backend.AttrUseIP:       useIP,
		}
		if h.Inventory != nil {
			idx.inventory[h.ID] = h.Inventory
		}
		hostNames[h.ID] = h.Host
	}

	for _, it := range doc.Items {
		if it.ID == "" {
			return nil, errors.New("item without id")
		}
		idx.items[it.ID] = map[string]string{
			backend.AttrKey:    it.Key,
			backend.AttrName:   it.Name,
			backend.AttrHostID: it.HostID,
			backend.AttrUnits:  it.Units,
		}
		history := slices.Clone(it.History)
		sort.SliceStable(history, func(i, j int) bool { return history[i].Clock < history[j].Clock })
		idx.history[it.ID] = history

		switch {
		case it.LastValue != nil:
			idx.latest[it.ID] = *it.LastValue
		case len(history) > 0:
			idx.latest[it.ID] = history[len(history)-1].Value
		}
		if host, ok := hostNames[it.HostID]; ok {
			idx.byKey[backend.HostKey{Host: host, Key: it.Key}] = it.ID
		}
	}

	for _, f := range doc.Functions {
		idx.functions[f.ID] = backend.Function{ID: f.ID, ItemID: f.ItemID, Name: f.Name, Params: f.Params}
	}

	return idx, nil
}

func (s *Store) FetchDefinitions(_ context.Context, ids []scope.ID) ([]scope.Definition, error) {
	idx := s.index()
	var out []scope.Definition
	for _, id := range ids {
		out = append(out, idx.defs[id]...)
	}
	return out, nil
}

func (s *Store) FetchParentScopes(_ context.Context, ids []scope.ID) (map[scope.ID][]scope.ID, error) {
	idx := s.index()
	out := make(map[scope.ID][]scope.ID, len(ids))
	for _, id := range ids {
		out[id] = idx.parents[id]
	}
	return out, nil
}

func (s *Store) FetchEntityAttributes(_ context.Context, kind backend.EntityKind, ids []string, attrs []string) (map[string]map[string]string, error) {
	idx := s.index()

	var table map[string]map[string]string
	switch kind {
	case backend.EntityHost:
		table = idx.hosts
	case backend.EntityInventory:
		table = idx.inventory
	case backend.EntityItem:
		table = idx.items
	default:
		return nil, fmt.Errorf("unknown entity kind '%s'", kind)
	}

	out := make(map[string]map[string]string, len(ids))
	for _, id := range ids {
		row, ok := table[id]
		if !ok {
			continue
		}
		vals := make(map[string]string, len(attrs))
		for _, a := range attrs {
			if v, ok := row[a]; ok {
				vals[a] = v
			}
		}
		out[id] = vals
	}
	return out, nil
}

func (s *Store) FetchLatestMetricValues(_ context.Context, itemIDs []string) (map[string]string, error) {
	idx := s.index()
	out := make(map[string]string, len(itemIDs))
	for _, id := range itemIDs {
		if v, ok := idx.latest[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (s *Store) FetchMetricValuesAt(_ context.Context, lookups []backend.ItemAt) (map[backend.ItemAt]string, error) {
	idx := s.index()
	out := make(map[backend.ItemAt]string, len(lookups))
	for _, l := range lookups {
		h := idx.history[l.ItemID]
		// first sample after l.Time
		i := sort.Search(len(h), func(i int) bool { return h[i].Clock > l.Time })
		if i > 0 {
			out[l] = h[i-1].Value
		}
	}
	return out, nil
}

func (s *Store) FindItems(_ context.Context, keys []backend.HostKey) (map[backend.HostKey]string, error) {
	idx := s.index()
	out := make(map[backend.HostKey]string, len(keys))
	for _, k := range keys {
		if id, ok := idx.byKey[k]; ok {
			out[k] = id
		}
	}
	return out, nil
}

func (s *Store) FetchFunctions(_ context.Context, ids []string) (map[string]backend.Function, error) {
	idx := s.index()
	out := make(map[string]backend.Function, len(ids))
	for _, id := range ids {
		if f, ok := idx.functions[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}
