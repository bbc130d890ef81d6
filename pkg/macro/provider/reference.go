// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"fmt"

	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

// ReferenceProvider resolves $1..$9 to the parameters of the item key of
// the owning item. A missing parameter is empty.
type ReferenceProvider struct{}

func (p *ReferenceProvider) Name() string { return "reference" }

func (p *ReferenceProvider) Handles(tok token.Token) bool {
	return tok.Kind == token.KindReference
}

func (p *ReferenceProvider) Resolve(ctx context.Context, env *Env, needs []*Need) error {
	var ids []string
	for _, n := range needs {
		if n.Entity.ItemKey == "" && n.Entity.ItemID != "" {
			ids = append(ids, n.Entity.ItemID)
		}
	}

	var items map[string]map[string]string
	if ids = uniq(ids); len(ids) > 0 {
		var err error
		if items, err = env.Store.FetchEntityAttributes(ctx, backend.EntityItem, ids, []string{backend.AttrKey}); err != nil {
			return fmt.Errorf("fetching item keys: %w", err)
		}
	}

	for _, n := range needs {
		key := n.Entity.ItemKey
		if key == "" {
			key = items[n.Entity.ItemID][backend.AttrKey]
		}
		if key == "" {
			continue
		}
		_, params, ok := token.ParseItemKey(key)
		if !ok {
			env.Log.Debugf("cannot parse item key '%s'", key)
			continue
		}
		if i := n.Token.Attr.N; i <= len(params) {
			n.Set(params[i-1])
		} else {
			n.Set("")
		}
	}
	return nil
}
