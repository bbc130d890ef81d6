// SPDX-License-Identifier: GPL-3.0-or-later

// Package token finds macro-shaped substrings in free text.
//
// The scanner is not a parser: it walks the text offset by offset and tries
// an ordered list of small grammars at each offset. The first grammar that
// matches wins and the cursor jumps past the match, so tokens never overlap
// and never nest. Malformed syntax simply does not match.
package token

import "fmt"

// Kind identifies the grammar that produced a token.
type Kind uint8

const (
	KindUserMacro   Kind = iota + 1 // {$NAME}, {$NAME:ctx}, {$NAME:regex:"re"}
	KindMacro                       // {HOST.NAME}
	KindMacroFunc                   // {{MACRO}.func(params)}
	KindMacroN                      // {HOST.NAME}, {HOST.NAME2}
	KindMacroAN                     // {EVENT.TAGS.service}
	KindReference                   // $1 .. $9
	KindLLDMacro                    // {#NAME}, {{#NAME}.func(params)}
	KindFunctionID                  // {12345}
	KindExprMacro                   // {?last(/host/key)}
	KindReplacement                 // \0 .. \9
)

var kindNames = map[Kind]string{
	KindUserMacro:   "user_macro",
	KindMacro:       "macro",
	KindMacroFunc:   "macro_func",
	KindMacroN:      "macro_n",
	KindMacroAN:     "macro_an",
	KindReference:   "reference",
	KindLLDMacro:    "lld_macro",
	KindFunctionID:  "function_id",
	KindExprMacro:   "expr_macro",
	KindReplacement: "replacement",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ContextKind tells how a user macro context is matched.
type ContextKind uint8

const (
	ContextNone ContextKind = iota
	ContextExact
	ContextRegex
)

func (k ContextKind) String() string {
	switch k {
	case ContextExact:
		return "exact"
	case ContextRegex:
		return "regex"
	default:
		return "none"
	}
}

// Func is a function call attached to a macro: {{MACRO}.name(params)}.
type Func struct {
	Name   string
	Params []string
}

// Attributes holds the grammar specific data parsed out of a token.
// Only the fields relevant to the token kind are set.
type Attributes struct {
	// Macro is the canonical macro without index, e.g. "{HOST.NAME}",
	// "{$DISK.FREE}" or "{#IFNAME}".
	Macro string
	// Name is the bare user or LLD macro name, e.g. "DISK.FREE".
	Name string

	Context     string
	ContextKind ContextKind

	// FNum is the index suffix as written ("2", "service"). Empty means the
	// unqualified occurrence.
	FNum string
	// N is the numeric form of FNum, or the digit of a reference or
	// replacement. Zero when absent.
	N int

	Func *Func

	// ID is the numeric id of a function id reference.
	ID string

	// Expr is the body of an expression macro; Host, Key and Func describe
	// its leading function call when it has the form func(/host/key,...).
	Expr string
	Host string
	Key  string
}

// Token is one macro occurrence: Raw == text[Pos:Pos+Len].
type Token struct {
	Pos  int
	Len  int
	Raw  string
	Kind Kind
	Attr Attributes
}

// End is the offset just past the token.
func (t Token) End() int { return t.Pos + t.Len }

// HasContext reports whether a user macro token carries a context.
func (t Token) HasContext() bool { return t.Attr.ContextKind != ContextNone }

// Grammars selects the grammar families active for one text role.
// Macro lists hold canonical names including braces, e.g. "{HOST.NAME}".
type Grammars struct {
	UserMacros bool
	// Macros are matched verbatim.
	Macros []string
	// MacroFuncs may be wrapped as {{MACRO}.func(...)}; an optional 1-9
	// index is accepted on them. User macros are accepted inside a function
	// call when UserMacros is set.
	MacroFuncs []string
	// MacrosN accept an optional 1-9 index: {HOST.NAME2}.
	MacrosN []string
	// MacrosAN accept a dot separated alphanumeric index:
	// "{EVENT.TAGS}" matches {EVENT.TAGS.service}.
	MacrosAN      []string
	References    bool
	LLDMacros     bool
	LLDMacroFuncs bool
	FunctionIDs   bool
	ExprMacros    bool
	Replacements  bool
}

// Merge returns the union of two grammar sets.
func (g Grammars) Merge(o Grammars) Grammars {
	return Grammars{
		UserMacros:    g.UserMacros || o.UserMacros,
		Macros:        appendUnique(g.Macros, o.Macros),
		MacroFuncs:    appendUnique(g.MacroFuncs, o.MacroFuncs),
		MacrosN:       appendUnique(g.MacrosN, o.MacrosN),
		MacrosAN:      appendUnique(g.MacrosAN, o.MacrosAN),
		References:    g.References || o.References,
		LLDMacros:     g.LLDMacros || o.LLDMacros,
		LLDMacroFuncs: g.LLDMacroFuncs || o.LLDMacroFuncs,
		FunctionIDs:   g.FunctionIDs || o.FunctionIDs,
		ExprMacros:    g.ExprMacros || o.ExprMacros,
		Replacements:  g.Replacements || o.Replacements,
	}
}

func appendUnique(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range append(append([]string{}, a...), b...) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
