// SPDX-License-Identifier: GPL-3.0-or-later

package sqlstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/macro/scope"
	"github.com/netdata/netdata/go/macros/pkg/sqlquery"
)

// macro value type of plain text macros; secret text and vault
// macros are both secret
const macroTypeText = "0"

// columns named differently from their attribute
var columnAttrs = map[string]string{
	"key_": backend.AttrKey,
}

func (s *Store) FetchDefinitions(ctx context.Context, ids []scope.ID) ([]scope.Definition, error) {
	var (
		out   []scope.Definition
		hosts []scope.ID
	)
	global := slices.Contains(ids, backend.GlobalScope)
	for _, id := range ids {
		if id != backend.GlobalScope {
			hosts = append(hosts, id)
		}
	}

	add := func(id scope.ID, macro, value, typ string) {
		def, err := backend.ParseMacro(macro)
		if err != nil {
			s.Debugf("skipping macro of scope '%s': %v", id, err)
			return
		}
		def.Scope, def.Value, def.Secret = id, value, typ != macroTypeText
		out = append(out, def)
	}

	if global {
		q := "SELECT macro, value, type FROM globalmacro ORDER BY globalmacroid"
		err := s.query(ctx, q, func(_, v []string) error {
			add(backend.GlobalScope, v[0], v[1], v[2])
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("querying global macros: %w", err)
		}
	}

	if len(hosts) > 0 {
		q := "SELECT hostid, macro, value, type FROM hostmacro WHERE " + s.in("hostid", 1, len(hosts)) + " ORDER BY hostmacroid"
		err := s.query(ctx, q, func(_, v []string) error {
			add(scope.ID(v[0]), v[1], v[2], v[3])
			return nil
		}, sqlquery.Args(hosts)...)
		if err != nil {
			return nil, fmt.Errorf("querying host macros: %w", err)
		}
	}

	return out, nil
}

func (s *Store) FetchParentScopes(ctx context.Context, ids []scope.ID) (map[scope.ID][]scope.ID, error) {
	out := make(map[scope.ID][]scope.ID, len(ids))
	for _, id := range ids {
		out[id] = nil
	}
	if len(ids) == 0 {
		return out, nil
	}

	q := "SELECT hostid, templateid FROM hosts_templates WHERE " + s.in("hostid", 1, len(ids))
	err := s.query(ctx, q, func(_, v []string) error {
		id := scope.ID(v[0])
		out[id] = append(out[id], scope.ID(v[1]))
		return nil
	}, sqlquery.Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	return out, nil
}

func (s *Store) FetchEntityAttributes(ctx context.Context, kind backend.EntityKind, ids []string, attrs []string) (map[string]map[string]string, error) {
	if len(ids) == 0 {
		return map[string]map[string]string{}, nil
	}

	var q string
	switch kind {
	case backend.EntityHost:
		// main agent interface
		q = "SELECT h.hostid, h.host, h.name, h.description, i.ip, i.dns, i.port, i.useip " +
			"FROM hosts h LEFT JOIN interface i ON i.hostid = h.hostid AND i.main = 1 AND i.type = 1 " +
			"WHERE " + s.in("h.hostid", 1, len(ids))
	case backend.EntityInventory:
		q = "SELECT * FROM host_inventory WHERE " + s.in("hostid", 1, len(ids))
	case backend.EntityItem:
		q = "SELECT itemid, key_, name, hostid, units FROM items WHERE " + s.in("itemid", 1, len(ids))
	default:
		return nil, fmt.Errorf("unknown entity kind '%s'", kind)
	}

	want := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		want[a] = true
	}

	out := make(map[string]map[string]string, len(ids))
	err := s.query(ctx, q, func(cols, v []string) error {
		row := make(map[string]string, len(attrs))
		for i := 1; i < len(cols); i++ {
			attr := cols[i]
			if a, ok := columnAttrs[attr]; ok {
				attr = a
			}
			if want[attr] {
				row[attr] = v[i]
			}
		}
		out[v[0]] = row
		return nil
	}, sqlquery.Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("querying %s attributes: %w", kind, err)
	}
	return out, nil
}

func (s *Store) FetchLatestMetricValues(ctx context.Context, itemIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	q := "SELECT h.itemid, h.value FROM history h JOIN (" +
		"SELECT itemid, MAX(clock) AS clock FROM history WHERE " + s.in("itemid", 1, len(itemIDs)) + " GROUP BY itemid" +
		") m ON m.itemid = h.itemid AND m.clock = h.clock"
	err := s.query(ctx, q, func(_, v []string) error {
		out[v[0]] = v[1]
		return nil
	}, sqlquery.Args(itemIDs)...)
	if err != nil {
		return nil, fmt.Errorf("querying latest values: %w", err)
	}
	return out, nil
}

func (s *Store) FetchMetricValuesAt(ctx context.Context, lookups []backend.ItemAt) (map[backend.ItemAt]string, error) {
	out := make(map[backend.ItemAt]string, len(lookups))

	q := "SELECT value FROM history WHERE itemid = " + s.style.Placeholder(1) +
		" AND clock <= " + s.style.Placeholder(2) + " ORDER BY clock DESC LIMIT 1"
	for _, l := range lookups {
		err := s.query(ctx, q, func(_, v []string) error {
			out[l] = v[0]
			return nil
		}, l.ItemID, l.Time)
		if err != nil {
			return nil, fmt.Errorf("querying value of item '%s' at %d: %w", l.ItemID, l.Time, err)
		}
	}
	return out, nil
}

func (s *Store) FindItems(ctx context.Context, keys []backend.HostKey) (map[backend.HostKey]string, error) {
	out := make(map[backend.HostKey]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	want := make(map[backend.HostKey]bool, len(keys))
	var hosts []string
	for _, k := range keys {
		want[k] = true
		if !slices.Contains(hosts, k.Host) {
			hosts = append(hosts, k.Host)
		}
	}

	q := "SELECT i.itemid, h.host, i.key_ FROM items i JOIN hosts h ON h.hostid = i.hostid WHERE " + s.in("h.host", 1, len(hosts))
	err := s.query(ctx, q, func(_, v []string) error {
		if k := (backend.HostKey{Host: v[1], Key: v[2]}); want[k] {
			out[k] = v[0]
		}
		return nil
	}, sqlquery.Args(hosts)...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	return out, nil
}

func (s *Store) FetchFunctions(ctx context.Context, ids []string) (map[string]backend.Function, error) {
	out := make(map[string]backend.Function, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q := "SELECT functionid, itemid, name, parameter FROM functions WHERE " + s.in("functionid", 1, len(ids))
	err := s.query(ctx, q, func(_, v []string) error {
		out[v[0]] = backend.Function{ID: v[0], ItemID: v[1], Name: v[2], Params: v[3]}
		return nil
	}, sqlquery.Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("querying functions: %w", err)
	}
	return out, nil
}
