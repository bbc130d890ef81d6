// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

// ItemProvider resolves {ITEM.*} macros of the Nth related item.
// {ITEM.VALUE} is the value at the event time, {ITEM.LASTVALUE} the
// latest one.
type ItemProvider struct{}

func (p *ItemProvider) Name() string { return "item" }

func (p *ItemProvider) Handles(tok token.Token) bool {
	switch tok.Kind {
	case token.KindMacro, token.KindMacroN, token.KindMacroFunc:
		return slices.Contains(ItemMacros, tok.Attr.Macro)
	}
	return false
}

func (p *ItemProvider) Resolve(ctx context.Context, env *Env, needs []*Need) error {
	var (
		attrIDs   []string
		latestIDs []string
		at        []backend.ItemAt
	)
	itemOf := make(map[*Need]string, len(needs))

	for _, n := range needs {
		id, ok := n.Entity.Item(n.Token.Attr.N)
		if !ok {
			continue
		}
		itemOf[n] = id

		switch n.Token.Attr.Macro {
		case MacroItemKey, MacroItemName:
			attrIDs = append(attrIDs, id)
		case MacroItemValue:
			if n.Entity.EventTime > 0 {
				at = append(at, backend.ItemAt{ItemID: id, Time: n.Entity.EventTime})
				continue
			}
			latestIDs = append(latestIDs, id)
		case MacroItemLastValue:
			latestIDs = append(latestIDs, id)
		}
	}

	var (
		attrs  map[string]map[string]string
		latest map[string]string
		past   map[backend.ItemAt]string
		err    error
	)
	if ids := uniq(attrIDs); len(ids) > 0 {
		if attrs, err = env.Store.FetchEntityAttributes(ctx, backend.EntityItem, ids, []string{backend.AttrKey, backend.AttrName}); err != nil {
			return fmt.Errorf("fetching items: %w", err)
		}
	}
	if ids := uniq(latestIDs); len(ids) > 0 {
		if latest, err = env.Store.FetchLatestMetricValues(ctx, ids); err != nil {
			return fmt.Errorf("fetching latest values: %w", err)
		}
	}
	if len(at) > 0 {
		if past, err = env.Store.FetchMetricValuesAt(ctx, slices.Compact(sortItemAt(at))); err != nil {
			return fmt.Errorf("fetching historical values: %w", err)
		}
	}

	for _, n := range needs {
		id, ok := itemOf[n]
		if !ok {
			continue
		}
		var v string
		switch n.Token.Attr.Macro {
		case MacroItemID:
			v, ok = id, true
		case MacroItemKey:
			v, ok = attrs[id][backend.AttrKey]
		case MacroItemName:
			v, ok = attrs[id][backend.AttrName]
		case MacroItemLastValue:
			v, ok = latest[id]
		case MacroItemValue:
			if n.Entity.EventTime > 0 {
				v, ok = past[backend.ItemAt{ItemID: id, Time: n.Entity.EventTime}]
			} else {
				v, ok = latest[id]
			}
		default:
			ok = false
		}
		if ok {
			n.Set(v)
		}
	}
	return nil
}

func sortItemAt(s []backend.ItemAt) []backend.ItemAt {
	slices.SortFunc(s, func(a, b backend.ItemAt) int {
		return cmp.Or(strings.Compare(a.ItemID, b.ItemID), cmp.Compare(a.Time, b.Time))
	})
	return s
}
