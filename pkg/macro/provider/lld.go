// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

// LLDProvider resolves {#MACRO} from the discovery row of the entity. A
// macro with an entry in Entity.LLDPaths is read through that JSONPath,
// other macros are read as top level keys of the row.
type LLDProvider struct{}

func (p *LLDProvider) Name() string { return "lld" }

func (p *LLDProvider) Handles(tok token.Token) bool {
	return tok.Kind == token.KindLLDMacro
}

func (p *LLDProvider) Resolve(_ context.Context, env *Env, needs []*Need) error {
	rows := make(map[*Entity]gjson.Result)

	for _, n := range needs {
		if n.Entity.LLD == "" {
			continue
		}
		row, ok := rows[n.Entity]
		if !ok {
			if !gjson.Valid(n.Entity.LLD) {
				env.Log.Debugf("invalid discovery row for '%s'", n.Token.Raw)
				continue
			}
			row = gjson.Parse(n.Entity.LLD)
			rows[n.Entity] = row
		}

		macro := n.Token.Attr.Macro
		var res gjson.Result
		if jp, ok := n.Entity.LLDPaths[macro]; ok {
			path, ok := jsonPathToGJSON(jp)
			if !ok {
				env.Log.Debugf("unsupported LLD macro path '%s' of '%s'", jp, macro)
				continue
			}
			res = row.Get(path)
		} else {
			res = topLevelKey(row, macro)
		}
		if res.Exists() {
			n.Set(res.String())
		}
	}
	return nil
}

func topLevelKey(row gjson.Result, key string) gjson.Result {
	var out gjson.Result
	row.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			out = v
			return false
		}
		return true
	})
	return out
}

// jsonPathToGJSON converts the dot and bracket subset of JSONPath
// ($.a.b, $['a'], $.a[0]) to a gjson path.
func jsonPathToGJSON(jp string) (string, bool) {
	s, ok := strings.CutPrefix(strings.TrimSpace(jp), "$")
	if !ok || s == "" {
		return "", false
	}

	var parts []string
	for len(s) > 0 {
		switch s[0] {
		case '.':
			s = s[1:]
			end := strings.IndexAny(s, ".[")
			if end < 0 {
				end = len(s)
			}
			if end == 0 {
				return "", false
			}
			parts = append(parts, escapeGJSON(s[:end]))
			s = s[end:]
		case '[':
			end := strings.IndexByte(s, ']')
			if end < 0 {
				return "", false
			}
			inner := s[1:end]
			if len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0] {
				inner = inner[1 : len(inner)-1]
			} else if !isNumber(inner) {
				return "", false
			}
			parts = append(parts, escapeGJSON(inner))
			s = s[end+1:]
		default:
			return "", false
		}
	}
	return strings.Join(parts, "."), true
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func escapeGJSON(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', '{', '}', '[', ']', ',', ':', '"':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
