// SPDX-License-Identifier: GPL-3.0-or-later

package funcs

import (
	"github.com/netdata/netdata/go/macros/pkg/macro/rx"
	"github.com/netdata/netdata/go/macros/pkg/macro/subst"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

var replacementScanner = token.NewScanner(token.Grammars{Replacements: true})

// regsub matches params[0] against value and returns the template params[1]
// with \0..\9 replaced by the captured groups.
func regsub(params []string, value string, fold bool) (string, bool) {
	if len(params) != 2 {
		return "", false
	}

	compile := rx.Compile
	if fold {
		compile = rx.CompileFold
	}
	re, err := compile(params[0])
	if err != nil {
		return "", false
	}

	m := re.FindStringSubmatchIndex(value)
	if m == nil {
		return "", false
	}

	tpl := params[1]
	tokens := replacementScanner.Scan(tpl)
	values := make(map[int]string, len(tokens))
	for _, tok := range tokens {
		values[tok.Pos] = group(value, m, tok.Attr.N)
	}
	return subst.Substitute(tpl, tokens, values, subst.Policy{}), true
}

// group returns capture n, or "" when it does not exist or did not
// participate in the match.
func group(value string, m []int, n int) string {
	if 2*n+1 >= len(m) || m[2*n] < 0 {
		return ""
	}
	return value[m[2*n]:m[2*n+1]]
}
