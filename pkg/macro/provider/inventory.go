// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

// InventoryProvider resolves {INVENTORY.*} macros of the Nth related host.
type InventoryProvider struct{}

func (p *InventoryProvider) Name() string { return "inventory" }

func (p *InventoryProvider) Handles(tok token.Token) bool {
	switch tok.Kind {
	case token.KindMacro, token.KindMacroN, token.KindMacroFunc:
		return strings.HasPrefix(tok.Attr.Macro, inventoryPrefix)
	}
	return false
}

// inventoryField maps {INVENTORY.SERIALNO.A} to serialno_a.
func inventoryField(macro string) string {
	s := strings.TrimSuffix(strings.TrimPrefix(macro, inventoryPrefix), "}")
	return strings.ReplaceAll(strings.ToLower(s), ".", "_")
}

func (p *InventoryProvider) Resolve(ctx context.Context, env *Env, needs []*Need) error {
	hostOf := make(map[*Need]string, len(needs))
	var ids, fields []string
	for _, n := range needs {
		id, ok := n.Entity.Host(n.Token.Attr.N)
		if !ok {
			continue
		}
		hostOf[n] = id
		ids = append(ids, id)
		fields = append(fields, inventoryField(n.Token.Attr.Macro))
	}
	if ids = uniq(ids); len(ids) == 0 {
		return nil
	}

	inv, err := env.Store.FetchEntityAttributes(ctx, backend.EntityInventory, ids, uniq(fields))
	if err != nil {
		return fmt.Errorf("fetching inventories: %w", err)
	}

	for _, n := range needs {
		id, ok := hostOf[n]
		if !ok {
			continue
		}
		if v, ok := inv[id][inventoryField(n.Token.Attr.Macro)]; ok {
			n.Set(v)
		}
	}
	return nil
}
