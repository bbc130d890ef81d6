// SPDX-License-Identifier: GPL-3.0-or-later

// Package subst writes resolved values back into the text they were
// scanned from.
package subst

import (
	"slices"

	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

// Policy controls what happens to tokens without a resolved value.
type Policy struct {
	// Unresolved replaces unresolved tokens with Sentinel instead of leaving
	// their raw text.
	Unresolved bool
	Sentinel   string
}

// Substitute replaces every token span with values[token.Pos].
//
// Spans are replaced from the highest offset down, so the offsets of the
// remaining lower spans stay valid whatever the replacement lengths are.
func Substitute(text string, tokens []token.Token, values map[int]string, policy Policy) string {
	if len(tokens) == 0 {
		return text
	}

	ordered := slices.Clone(tokens)
	slices.SortFunc(ordered, func(a, b token.Token) int { return b.Pos - a.Pos })

	out := text
	for _, tok := range ordered {
		if tok.Pos < 0 || tok.End() > len(text) || text[tok.Pos:tok.End()] != tok.Raw {
			continue
		}
		v, ok := values[tok.Pos]
		if !ok {
			if !policy.Unresolved {
				continue
			}
			v = policy.Sentinel
		}
		out = out[:tok.Pos] + v + out[tok.End():]
	}
	return out
}
