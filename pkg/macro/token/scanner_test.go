// SPDX-License-Identifier: GPL-3.0-or-later

package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testGrammars = Grammars{
	UserMacros:    true,
	Macros:        []string{"{HOST.NAME}", "{HOST.HOST}"},
	MacroFuncs:    []string{"{ITEM.VALUE}", "{ITEM.LASTVALUE}"},
	MacrosN:       []string{"{HOST.NAME}", "{HOST.IP}", "{ITEM.VALUE}"},
	MacrosAN:      []string{"{EVENT.TAGS}"},
	References:    true,
	LLDMacros:     true,
	LLDMacroFuncs: true,
	FunctionIDs:   true,
	ExprMacros:    true,
	Replacements:  true,
}

type wantToken struct {
	raw  string
	kind Kind
	attr Attributes
}

func TestScanner_Scan(t *testing.T) {
	tests := map[string]struct {
		text     string
		grammars Grammars
		want     []wantToken
	}{
		"user macro": {
			text: "free: {$DISK.FREE.MIN}",
			want: []wantToken{
				{raw: "{$DISK.FREE.MIN}", kind: KindUserMacro, attr: Attributes{Macro: "{$DISK.FREE.MIN}", Name: "DISK.FREE.MIN"}},
			},
		},
		"user macro with quoted context": {
			text: `{$M:"a \"b\""}`,
			want: []wantToken{
				{raw: `{$M:"a \"b\""}`, kind: KindUserMacro, attr: Attributes{Macro: "{$M}", Name: "M", Context: `a "b"`, ContextKind: ContextExact}},
			},
		},
		"user macro with unquoted context": {
			text: "{$M: /var}",
			want: []wantToken{
				{raw: "{$M: /var}", kind: KindUserMacro, attr: Attributes{Macro: "{$M}", Name: "M", Context: "/var", ContextKind: ContextExact}},
			},
		},
		"user macro with regex context": {
			text: `{$M:regex:"^[0-9]+$"}`,
			want: []wantToken{
				{raw: `{$M:regex:"^[0-9]+$"}`, kind: KindUserMacro, attr: Attributes{Macro: "{$M}", Name: "M", Context: "^[0-9]+$", ContextKind: ContextRegex}},
			},
		},
		"user macro with empty context": {
			text: "{$M:}",
			want: []wantToken{
				{raw: "{$M:}", kind: KindUserMacro, attr: Attributes{Macro: "{$M}", Name: "M", ContextKind: ContextExact}},
			},
		},
		"malformed user macros are skipped": {
			text: `{$lower} {$} {$M:"open}`,
			want: nil,
		},
		"named and indexed macros": {
			text: "{HOST.NAME} {HOST.NAME3} {HOST.IP} {HOST.NAME0} {HOST.UNKNOWN}",
			want: []wantToken{
				{raw: "{HOST.NAME}", kind: KindMacro, attr: Attributes{Macro: "{HOST.NAME}"}},
				{raw: "{HOST.NAME3}", kind: KindMacroN, attr: Attributes{Macro: "{HOST.NAME}", FNum: "3", N: 3}},
				{raw: "{HOST.IP}", kind: KindMacroN, attr: Attributes{Macro: "{HOST.IP}"}},
			},
		},
		"alphanumeric index": {
			text: "{EVENT.TAGS.service} {EVENT.TAGS.} {EVENT.TAGS}",
			want: []wantToken{
				{raw: "{EVENT.TAGS.service}", kind: KindMacroAN, attr: Attributes{Macro: "{EVENT.TAGS}", FNum: "service"}},
			},
		},
		"macro function": {
			text: `v={{ITEM.VALUE}.regsub("(\d+)", \1)}`,
			want: []wantToken{
				{raw: `{{ITEM.VALUE}.regsub("(\d+)", \1)}`, kind: KindMacroFunc, attr: Attributes{
					Macro: "{ITEM.VALUE}",
					Func:  &Func{Name: "regsub", Params: []string{`(\d+)`, `\1`}},
				}},
			},
		},
		"macro function with index": {
			text: "{{ITEM.VALUE2}.fmtnum(2)}",
			want: []wantToken{
				{raw: "{{ITEM.VALUE2}.fmtnum(2)}", kind: KindMacroFunc, attr: Attributes{
					Macro: "{ITEM.VALUE}", FNum: "2", N: 2,
					Func: &Func{Name: "fmtnum", Params: []string{"2"}},
				}},
			},
		},
		"user macro function": {
			text: `{{$URL}.regsub("^https://(.+)$", "\1")}`,
			want: []wantToken{
				{raw: `{{$URL}.regsub("^https://(.+)$", "\1")}`, kind: KindMacroFunc, attr: Attributes{
					Macro: "{$URL}", Name: "URL",
					Func: &Func{Name: "regsub", Params: []string{"^https://(.+)$", `\1`}},
				}},
			},
		},
		"user macro with function suffix": {
			text: `url: {$URL}.regsub("^https://(.+)$", "\1")!`,
			want: []wantToken{
				{raw: `{$URL}.regsub("^https://(.+)$", "\1")`, kind: KindUserMacro, attr: Attributes{
					Macro: "{$URL}", Name: "URL",
					Func: &Func{Name: "regsub", Params: []string{"^https://(.+)$", `\1`}},
				}},
			},
		},
		"user macro with unknown suffix stays plain": {
			text: "{$HOST}.example(1)",
			want: []wantToken{
				{raw: "{$HOST}", kind: KindUserMacro, attr: Attributes{Macro: "{$HOST}", Name: "HOST"}},
			},
		},
		"user macro followed by dot text": {
			text: "{$DOMAIN}.fmtnum",
			want: []wantToken{
				{raw: "{$DOMAIN}", kind: KindUserMacro, attr: Attributes{Macro: "{$DOMAIN}", Name: "DOMAIN"}},
			},
		},
		"malformed macro function falls back to inner macro": {
			text: "{{$A}}",
			want: []wantToken{
				{raw: "{$A}", kind: KindUserMacro, attr: Attributes{Macro: "{$A}", Name: "A"}},
			},
		},
		"references": {
			text: "Free on $1 ($2), $0 and $x",
			want: []wantToken{
				{raw: "$1", kind: KindReference, attr: Attributes{N: 1, FNum: "1"}},
				{raw: "$2", kind: KindReference, attr: Attributes{N: 2, FNum: "2"}},
			},
		},
		"lld macros": {
			text: `{#IFNAME}: {{#IFNAME}.iregsub("eth(\d)", "\1")}`,
			want: []wantToken{
				{raw: "{#IFNAME}", kind: KindLLDMacro, attr: Attributes{Macro: "{#IFNAME}", Name: "IFNAME"}},
				{raw: `{{#IFNAME}.iregsub("eth(\d)", "\1")}`, kind: KindLLDMacro, attr: Attributes{
					Macro: "{#IFNAME}", Name: "IFNAME",
					Func: &Func{Name: "iregsub", Params: []string{`eth(\d)`, `\1`}},
				}},
			},
		},
		"function ids": {
			text: "{12345}>0 or {}",
			want: []wantToken{
				{raw: "{12345}", kind: KindFunctionID, attr: Attributes{ID: "12345"}},
			},
		},
		"expression macro": {
			text: "load: {?last(/web01/system.cpu.load[all,avg1])}",
			want: []wantToken{
				{raw: "{?last(/web01/system.cpu.load[all,avg1])}", kind: KindExprMacro, attr: Attributes{
					Expr: "last(/web01/system.cpu.load[all,avg1])",
					Host: "web01", Key: "system.cpu.load[all,avg1]",
					Func: &Func{Name: "last"},
				}},
			},
		},
		"expression macro with params and empty host": {
			text: "{?avg(//vfs.fs.size[/,free],1h)}",
			want: []wantToken{
				{raw: "{?avg(//vfs.fs.size[/,free],1h)}", kind: KindExprMacro, attr: Attributes{
					Expr: "avg(//vfs.fs.size[/,free],1h)",
					Key:  "vfs.fs.size[/,free]",
					Func: &Func{Name: "avg", Params: []string{"1h"}},
				}},
			},
		},
		"expression macro with nested macro": {
			text: "{?last(/{HOST.HOST}/agent.ping)}",
			want: []wantToken{
				{raw: "{?last(/{HOST.HOST}/agent.ping)}", kind: KindExprMacro, attr: Attributes{
					Expr: "last(/{HOST.HOST}/agent.ping)",
					Host: "{HOST.HOST}", Key: "agent.ping",
					Func: &Func{Name: "last"},
				}},
			},
		},
		"arithmetic expression macro": {
			text: "{?1+1}",
			want: []wantToken{
				{raw: "{?1+1}", kind: KindExprMacro, attr: Attributes{Expr: "1+1"}},
			},
		},
		"replacements": {
			text: `\1-\0\x`,
			want: []wantToken{
				{raw: `\1`, kind: KindReplacement, attr: Attributes{N: 1, FNum: "1"}},
				{raw: `\0`, kind: KindReplacement, attr: Attributes{N: 0, FNum: "0"}},
			},
		},
		"adjacent tokens": {
			text: "{$A}{$B}",
			want: []wantToken{
				{raw: "{$A}", kind: KindUserMacro, attr: Attributes{Macro: "{$A}", Name: "A"}},
				{raw: "{$B}", kind: KindUserMacro, attr: Attributes{Macro: "{$B}", Name: "B"}},
			},
		},
		"disabled grammars do not match": {
			text:     "{$A} {HOST.NAME} $1 {#A}",
			grammars: Grammars{Macros: []string{"{HOST.NAME}"}},
			want: []wantToken{
				{raw: "{HOST.NAME}", kind: KindMacro, attr: Attributes{Macro: "{HOST.NAME}"}},
			},
		},
		"unbalanced braces": {
			text: "{HOST.NAME {$A",
			want: nil,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			g := test.grammars
			if g.Macros == nil && !g.UserMacros {
				g = testGrammars
			}

			tokens := Scan(test.text, g)

			require.Len(t, tokens, len(test.want))
			for i, tok := range tokens {
				assert.Equal(t, test.want[i].raw, tok.Raw)
				assert.Equal(t, test.want[i].kind, tok.Kind, tok.Raw)
				assert.Equal(t, test.want[i].attr, tok.Attr, tok.Raw)
				assert.Equal(t, tok.Raw, test.text[tok.Pos:tok.End()])
			}
		})
	}
}

func TestScanner_PriorityFirstGrammarWins(t *testing.T) {
	g := Grammars{
		Macros:  []string{"{HOST.NAME}"},
		MacrosN: []string{"{HOST.NAME}"},
	}

	tokens := Scan("{HOST.NAME}{HOST.NAME1}", g)

	require.Len(t, tokens, 2)
	assert.Equal(t, KindMacro, tokens[0].Kind)
	assert.Equal(t, KindMacroN, tokens[1].Kind)
	assert.Equal(t, 1, tokens[1].Attr.N)
}

func TestGrammars_Merge(t *testing.T) {
	a := Grammars{UserMacros: true, Macros: []string{"{HOST.NAME}"}}
	b := Grammars{References: true, Macros: []string{"{HOST.NAME}", "{HOST.IP}"}}

	m := a.Merge(b)

	assert.True(t, m.UserMacros)
	assert.True(t, m.References)
	assert.Equal(t, []string{"{HOST.NAME}", "{HOST.IP}"}, m.Macros)
}

var fuzzFragments = []string{
	"{", "}", "$", `\`, "1", "2", "A", "x", " ", ":", `"`, "(", ")", ".", ",", "#", "?", "/",
	"HOST.NAME", "{$", "{#", "{?", "{{", "regex:", "regsub", "ITEM.VALUE", "EVENT.TAGS.", "123",
}

func TestScanner_TokensAreOrderedAndReconstructText(t *testing.T) {
	scanner := NewScanner(testGrammars)

	rapid.Check(t, func(t *rapid.T) {
		frags := rapid.SliceOf(rapid.SampledFrom(fuzzFragments)).Draw(t, "fragments")
		text := strings.Join(frags, "")

		tokens := scanner.Scan(text)

		var b strings.Builder
		prev := 0
		for _, tok := range tokens {
			if tok.Len <= 0 {
				t.Fatalf("empty token %+v", tok)
			}
			if tok.Pos < prev {
				t.Fatalf("token %q at %d overlaps previous end %d", tok.Raw, tok.Pos, prev)
			}
			if text[tok.Pos:tok.End()] != tok.Raw {
				t.Fatalf("raw mismatch: %q vs %q", text[tok.Pos:tok.End()], tok.Raw)
			}
			b.WriteString(text[prev:tok.Pos])
			b.WriteString(tok.Raw)
			prev = tok.End()
		}
		b.WriteString(text[prev:])

		if b.String() != text {
			t.Fatalf("reconstruction mismatch: %q vs %q", b.String(), text)
		}
	})
}

func TestScanner_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := strings.Join(rapid.SliceOf(rapid.SampledFrom(fuzzFragments)).Draw(t, "fragments"), "")

		a := Scan(text, testGrammars)
		b := Scan(text, testGrammars)

		if len(a) != len(b) {
			t.Fatalf("token count differs: %d vs %d", len(a), len(b))
		}
		for i := range a {
			if a[i].Pos != b[i].Pos || a[i].Raw != b[i].Raw || a[i].Kind != b[i].Kind {
				t.Fatalf("token %d differs: %+v vs %+v", i, a[i], b[i])
			}
		}
	})
}
