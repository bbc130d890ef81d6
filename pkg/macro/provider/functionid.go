// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"fmt"

	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

// FunctionIDProvider renders {12345} function references of trigger
// expressions as func(/host/key,params).
type FunctionIDProvider struct{}

func (p *FunctionIDProvider) Name() string { return "function_id" }

func (p *FunctionIDProvider) Handles(tok token.Token) bool {
	return tok.Kind == token.KindFunctionID
}

func (p *FunctionIDProvider) Resolve(ctx context.Context, env *Env, needs []*Need) error {
	var ids []string
	for _, n := range needs {
		ids = append(ids, n.Token.Attr.ID)
	}
	if ids = uniq(ids); len(ids) == 0 {
		return nil
	}

	functions, err := env.Store.FetchFunctions(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetching functions: %w", err)
	}

	var itemIDs []string
	for _, f := range functions {
		itemIDs = append(itemIDs, f.ItemID)
	}
	items := map[string]map[string]string{}
	if itemIDs = uniq(itemIDs); len(itemIDs) > 0 {
		if items, err = env.Store.FetchEntityAttributes(ctx, backend.EntityItem, itemIDs, []string{backend.AttrKey, backend.AttrHostID}); err != nil {
			return fmt.Errorf("fetching function items: %w", err)
		}
	}

	var hostIDs []string
	for _, item := range items {
		hostIDs = append(hostIDs, item[backend.AttrHostID])
	}
	hosts := map[string]map[string]string{}
	if hostIDs = uniq(hostIDs); len(hostIDs) > 0 {
		if hosts, err = env.Store.FetchEntityAttributes(ctx, backend.EntityHost, hostIDs, []string{backend.AttrHost}); err != nil {
			return fmt.Errorf("fetching function hosts: %w", err)
		}
	}

	for _, n := range needs {
		f, ok := functions[n.Token.Attr.ID]
		if !ok {
			continue
		}
		item, ok := items[f.ItemID]
		if !ok {
			continue
		}
		host, ok := hosts[item[backend.AttrHostID]][backend.AttrHost]
		if !ok {
			continue
		}
		v := fmt.Sprintf("%s(/%s/%s", f.Name, host, item[backend.AttrKey])
		if f.Params != "" {
			v += "," + f.Params
		}
		n.Set(v + ")")
	}
	return nil
}
