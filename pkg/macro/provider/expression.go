// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/confopt"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

const exprFuncLast = "last"

// ExprMacroProvider evaluates the expression macros that read one value:
// {?last(/host/key)} and {?last(/host/key,#1:now-1h)}. An empty host or
// {HOST.HOST} is the host of the text. Other expressions are declined.
type ExprMacroProvider struct{}

func (p *ExprMacroProvider) Name() string { return "expression" }

func (p *ExprMacroProvider) Handles(tok token.Token) bool {
	return tok.Kind == token.KindExprMacro
}

type exprQuery struct {
	need   *Need
	hostID string // set when the host is the one of the text
	host   string
	key    string
	shift  time.Duration
	past   bool
}

func (p *ExprMacroProvider) Resolve(ctx context.Context, env *Env, needs []*Need) error {
	var (
		queries []*exprQuery
		hostIDs []string
	)
	for _, n := range needs {
		q, ok := parseExprQuery(n)
		if !ok {
			env.Log.Debugf("unsupported expression macro '%s'", n.Token.Raw)
			continue
		}
		if q.hostID != "" {
			hostIDs = append(hostIDs, q.hostID)
		}
		queries = append(queries, q)
	}

	if hostIDs = uniq(hostIDs); len(hostIDs) > 0 {
		hosts, err := env.Store.FetchEntityAttributes(ctx, backend.EntityHost, hostIDs, []string{backend.AttrHost})
		if err != nil {
			return fmt.Errorf("fetching expression hosts: %w", err)
		}
		for _, q := range queries {
			if q.hostID != "" {
				q.host = hosts[q.hostID][backend.AttrHost]
			}
		}
	}

	var keys []backend.HostKey
	seen := make(map[backend.HostKey]bool)
	for _, q := range queries {
		hk := backend.HostKey{Host: q.host, Key: q.key}
		if q.host != "" && !seen[hk] {
			seen[hk] = true
			keys = append(keys, hk)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	items, err := env.Store.FindItems(ctx, keys)
	if err != nil {
		return fmt.Errorf("finding expression items: %w", err)
	}

	now := env.now().Unix()
	var (
		latestIDs []string
		at        []backend.ItemAt
	)
	for _, q := range queries {
		id, ok := items[backend.HostKey{Host: q.host, Key: q.key}]
		if !ok {
			continue
		}
		if q.past {
			at = append(at, backend.ItemAt{ItemID: id, Time: now - int64(q.shift/time.Second)})
		} else {
			latestIDs = append(latestIDs, id)
		}
	}

	var (
		latest map[string]string
		past   map[backend.ItemAt]string
	)
	if latestIDs = uniq(latestIDs); len(latestIDs) > 0 {
		if latest, err = env.Store.FetchLatestMetricValues(ctx, latestIDs); err != nil {
			return fmt.Errorf("fetching expression values: %w", err)
		}
	}
	if len(at) > 0 {
		if past, err = env.Store.FetchMetricValuesAt(ctx, at); err != nil {
			return fmt.Errorf("fetching expression history: %w", err)
		}
	}

	for _, q := range queries {
		id, ok := items[backend.HostKey{Host: q.host, Key: q.key}]
		if !ok {
			continue
		}
		var v string
		if q.past {
			v, ok = past[backend.ItemAt{ItemID: id, Time: now - int64(q.shift/time.Second)}]
		} else {
			v, ok = latest[id]
		}
		if ok {
			q.need.Set(v)
		}
	}
	return nil
}

func parseExprQuery(n *Need) (*exprQuery, bool) {
	attr := n.Token.Attr
	if attr.Func == nil || attr.Func.Name != exprFuncLast || attr.Key == "" {
		return nil, false
	}

	q := &exprQuery{need: n, host: attr.Host, key: attr.Key}
	if q.host == "" || q.host == MacroHostHost {
		if n.Entity.HostID == "" {
			return nil, false
		}
		q.host, q.hostID = "", n.Entity.HostID
	}

	switch len(attr.Func.Params) {
	case 0:
		return q, true
	case 1:
	default:
		return nil, false
	}

	param := attr.Func.Params[0]
	if param == "" || param == "#1" {
		return q, true
	}
	shift, ok := strings.CutPrefix(param, "#1:")
	if !ok {
		return nil, false
	}
	d, ok := parseNowShift(shift)
	if !ok {
		return nil, false
	}
	q.past, q.shift = true, d
	return q, true
}

// parseNowShift parses "now", "now-1h" or "now-30m" into the distance back
// from now.
func parseNowShift(s string) (time.Duration, bool) {
	rest, ok := strings.CutPrefix(s, "now")
	if !ok {
		return 0, false
	}
	if rest == "" {
		return 0, true
	}
	if rest[0] != '-' {
		return 0, false
	}
	return confopt.ParseTimeSuffix(rest[1:])
}
