// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/macro/scope"
	"github.com/netdata/netdata/go/macros/pkg/macro/subst"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

var hostAttrs = map[string]string{
	MacroHostHost:        backend.AttrHost,
	MacroHostName:        backend.AttrName,
	MacroHostDescription: backend.AttrDescription,
	MacroHostIP:          backend.AttrIP,
	MacroIPAddress:       backend.AttrIP,
	MacroHostDNS:         backend.AttrDNS,
	MacroHostPort:        backend.AttrPort,
}

// interface fields may hold user macros defined on the host itself
var interfaceAttrs = []string{backend.AttrIP, backend.AttrDNS, backend.AttrPort}

var userMacroScanner = token.NewScanner(token.Grammars{UserMacros: true})

// HostProvider resolves {HOST.*} macros of the Nth related host.
type HostProvider struct{}

func (p *HostProvider) Name() string { return "host" }

func (p *HostProvider) Handles(tok token.Token) bool {
	switch tok.Kind {
	case token.KindMacro, token.KindMacroN, token.KindMacroFunc:
		return slices.Contains(HostMacros, tok.Attr.Macro)
	}
	return false
}

func (p *HostProvider) Resolve(ctx context.Context, env *Env, needs []*Need) error {
	hostOf := make(map[*Need]string, len(needs))
	var ids []string
	for _, n := range needs {
		id, ok := n.Entity.Host(n.Token.Attr.N)
		if !ok {
			continue
		}
		hostOf[n] = id
		ids = append(ids, id)
	}
	if ids = uniq(ids); len(ids) == 0 {
		return nil
	}

	attrs := []string{
		backend.AttrHost,
		backend.AttrName,
		backend.AttrDescription,
		backend.AttrIP,
		backend.AttrDNS,
		backend.AttrPort,
		backend.AttrUseIP,
	}
	hosts, err := env.Store.FetchEntityAttributes(ctx, backend.EntityHost, ids, attrs)
	if err != nil {
		return fmt.Errorf("fetching hosts: %w", err)
	}

	if err := expandInterfaceMacros(ctx, env, hosts); err != nil {
		return err
	}

	for _, n := range needs {
		id, ok := hostOf[n]
		if !ok {
			continue
		}
		host, ok := hosts[id]
		if !ok {
			env.Log.Debugf("host '%s' not found for '%s'", id, n.Token.Raw)
			continue
		}
		if v, ok := hostValue(id, host, n.Token.Attr.Macro); ok {
			n.Set(v)
		}
	}
	return nil
}

func hostValue(id string, host map[string]string, macro string) (string, bool) {
	switch macro {
	case MacroHostID:
		return id, true
	case MacroHostConn:
		if host[backend.AttrUseIP] == "0" {
			v, ok := host[backend.AttrDNS]
			return v, ok
		}
		v, ok := host[backend.AttrIP]
		return v, ok
	case MacroHostName:
		// visible name falls back to the technical name
		if v := host[backend.AttrName]; v != "" {
			return v, true
		}
		v, ok := host[backend.AttrHost]
		return v, ok
	}
	attr, ok := hostAttrs[macro]
	if !ok {
		return "", false
	}
	v, ok := host[attr]
	return v, ok
}

// expandInterfaceMacros replaces user macros in interface fields with their
// values resolved against the owning host.
func expandInterfaceMacros(ctx context.Context, env *Env, hosts map[string]map[string]string) error {
	if env.UserMacros == nil {
		return nil
	}

	type field struct {
		host, attr string
		tokens     []token.Token
		first      int
	}
	var (
		fields  []field
		lookups []UserMacroLookup
	)

	ids := make([]string, 0, len(hosts))
	for id := range hosts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		for _, attr := range interfaceAttrs {
			v := hosts[id][attr]
			if !strings.Contains(v, "{$") {
				continue
			}
			tokens := userMacroScanner.Scan(v)
			if len(tokens) == 0 {
				continue
			}
			fields = append(fields, field{host: id, attr: attr, tokens: tokens, first: len(lookups)})
			for _, tok := range tokens {
				l := UserMacroLookup{Scopes: []scope.ID{scope.ID(id)}, Name: tok.Attr.Name}
				if tok.HasContext() {
					c := tok.Attr.Context
					l.Context = &c
				}
				lookups = append(lookups, l)
			}
		}
	}
	if len(lookups) == 0 {
		return nil
	}

	resolved, err := env.UserMacros(ctx, lookups)
	if err != nil {
		return fmt.Errorf("resolving interface macros: %w", err)
	}

	for _, f := range fields {
		values := make(map[int]string, len(f.tokens))
		for i, tok := range f.tokens {
			if r := resolved[f.first+i]; r.Found {
				values[tok.Pos] = r.Value
			}
		}
		hosts[f.host][f.attr] = subst.Substitute(hosts[f.host][f.attr], f.tokens, values, subst.Policy{})
	}
	return nil
}
