// SPDX-License-Identifier: GPL-3.0-or-later

package token

import "strconv"

// grammar is one entry of the global priority list.
type grammar struct {
	kind    Kind
	lead    byte
	enabled func(*Scanner) bool
	match   func(s *Scanner, text string, pos int) (Token, bool)
}

// grammarOrder is the fixed global priority. At every offset the first
// enabled grammar that matches wins.
var grammarOrder = []grammar{
	{KindUserMacro, '{', func(s *Scanner) bool { return s.g.UserMacros }, (*Scanner).matchUserMacro},
	{KindMacro, '{', func(s *Scanner) bool { return len(s.macros) > 0 }, (*Scanner).matchMacro},
	{KindMacroFunc, '{', func(s *Scanner) bool { return len(s.macroFuncs) > 0 || s.g.UserMacros }, (*Scanner).matchMacroFunc},
	{KindMacroN, '{', func(s *Scanner) bool { return len(s.macrosN) > 0 }, (*Scanner).matchMacroN},
	{KindMacroAN, '{', func(s *Scanner) bool { return len(s.macrosAN) > 0 }, (*Scanner).matchMacroAN},
	{KindReference, '$', func(s *Scanner) bool { return s.g.References }, (*Scanner).matchReference},
	{KindLLDMacro, '{', func(s *Scanner) bool { return s.g.LLDMacros || s.g.LLDMacroFuncs }, (*Scanner).matchLLDMacro},
	{KindFunctionID, '{', func(s *Scanner) bool { return s.g.FunctionIDs }, (*Scanner).matchFunctionID},
	{KindExprMacro, '{', func(s *Scanner) bool { return s.g.ExprMacros }, (*Scanner).matchExprMacro},
	{KindReplacement, '\\', func(s *Scanner) bool { return s.g.Replacements }, (*Scanner).matchReplacement},
}

// Scanner is a compiled grammar set. It is immutable and safe for
// concurrent use.
type Scanner struct {
	g          Grammars
	active     []grammar
	macros     map[string]bool
	macroFuncs map[string]bool
	macrosN    map[string]bool
	macrosAN   map[string]bool
}

func NewScanner(g Grammars) *Scanner {
	s := &Scanner{
		g:          g,
		macros:     toSet(g.Macros),
		macroFuncs: toSet(g.MacroFuncs),
		macrosN:    toSet(g.MacrosN),
		macrosAN:   toSet(g.MacrosAN),
	}
	for _, gr := range grammarOrder {
		if gr.enabled(s) {
			s.active = append(s.active, gr)
		}
	}
	return s
}

// Scan is a shorthand for NewScanner(g).Scan(text).
func Scan(text string, g Grammars) []Token {
	return NewScanner(g).Scan(text)
}

func (s *Scanner) Grammars() Grammars { return s.g }

// Scan returns the tokens of text ordered by offset.
func (s *Scanner) Scan(text string) []Token {
	var tokens []Token
	for pos := 0; pos < len(text); {
		tok, ok := s.matchAt(text, pos)
		if !ok {
			pos++
			continue
		}
		tokens = append(tokens, tok)
		pos = tok.End()
	}
	return tokens
}

func (s *Scanner) matchAt(text string, pos int) (Token, bool) {
	c := text[pos]
	for _, gr := range s.active {
		if gr.lead != c {
			continue
		}
		if tok, ok := gr.match(s, text, pos); ok {
			tok.Pos = pos
			tok.Kind = gr.kind
			tok.Raw = text[pos : pos+tok.Len]
			return tok, true
		}
	}
	return Token{}, false
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isMacroNameChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '.'
}

// macroName returns the end of a run of macro name characters at text[i:].
func macroName(text string, i int) int {
	for i < len(text) && isMacroNameChar(text[i]) {
		i++
	}
	return i
}

// userMacro parses {$NAME[:context]} at pos.
func userMacro(text string, pos int) (Token, bool) {
	if pos+2 >= len(text) || text[pos] != '{' || text[pos+1] != '$' {
		return Token{}, false
	}
	nameEnd := macroName(text, pos+2)
	if nameEnd == pos+2 || nameEnd >= len(text) {
		return Token{}, false
	}

	tok := Token{Attr: Attributes{Name: text[pos+2 : nameEnd]}}
	tok.Attr.Macro = "{$" + tok.Attr.Name + "}"

	switch text[nameEnd] {
	case '}':
		tok.Len = nameEnd + 1 - pos
		return tok, true
	case ':':
	default:
		return Token{}, false
	}

	i := nameEnd + 1
	tok.Attr.ContextKind = ContextExact
	if hasPrefixAt(text, i, "regex:") {
		tok.Attr.ContextKind = ContextRegex
		i += len("regex:")
	}

	i = skipSpaces(text, i)
	if i >= len(text) {
		return Token{}, false
	}
	if text[i] == '"' {
		end, ok := quotedEnd(text, i)
		if !ok {
			return Token{}, false
		}
		tok.Attr.Context = Unquote(text[i:end])
		i = skipSpaces(text, end)
		if i >= len(text) || text[i] != '}' {
			return Token{}, false
		}
	} else {
		start := i
		for i < len(text) && text[i] != '}' {
			i++
		}
		if i >= len(text) {
			return Token{}, false
		}
		tok.Attr.Context = text[start:i]
	}
	tok.Len = i + 1 - pos
	return tok, true
}

func hasPrefixAt(text string, i int, prefix string) bool {
	return len(text)-i >= len(prefix) && text[i:i+len(prefix)] == prefix
}

// suffixFuncs may follow a user macro without the extra braces:
// {$URL}.regsub("^https://(.+)$", "\1").
var suffixFuncs = map[string]bool{
	"regsub":  true,
	"iregsub": true,
	"fmtnum":  true,
	"fmttime": true,
}

func (s *Scanner) matchUserMacro(text string, pos int) (Token, bool) {
	tok, ok := userMacro(text, pos)
	if !ok {
		return tok, false
	}
	if fn, end, ok := funcTail(text, pos+tok.Len); ok && suffixFuncs[fn.Name] {
		tok.Attr.Func = fn
		tok.Len = end - pos
	}
	return tok, true
}

// plainMacro parses {NAME} at pos and returns the canonical macro.
func plainMacro(text string, pos int) (string, int, bool) {
	if pos+1 >= len(text) || text[pos] != '{' {
		return "", 0, false
	}
	end := macroName(text, pos+1)
	if end == pos+1 || end >= len(text) || text[end] != '}' {
		return "", 0, false
	}
	return text[pos : end+1], end + 1 - pos, true
}

func (s *Scanner) matchMacro(text string, pos int) (Token, bool) {
	macro, n, ok := plainMacro(text, pos)
	if !ok || !s.macros[macro] {
		return Token{}, false
	}
	return Token{Len: n, Attr: Attributes{Macro: macro}}, true
}

// splitIndex splits {HOST.NAME2} into {HOST.NAME} and 2 when the base is
// in set. An unindexed macro from set is returned with n == 0.
func splitIndex(macro string, set map[string]bool) (string, int, bool) {
	if set[macro] {
		return macro, 0, true
	}
	if len(macro) < 4 {
		return "", 0, false
	}
	d := macro[len(macro)-2]
	if d < '1' || d > '9' {
		return "", 0, false
	}
	base := macro[:len(macro)-2] + "}"
	if !set[base] {
		return "", 0, false
	}
	return base, int(d - '0'), true
}

func (s *Scanner) matchMacroN(text string, pos int) (Token, bool) {
	macro, n, ok := plainMacro(text, pos)
	if !ok {
		return Token{}, false
	}
	base, idx, ok := splitIndex(macro, s.macrosN)
	if !ok {
		return Token{}, false
	}
	tok := Token{Len: n, Attr: Attributes{Macro: base, N: idx}}
	if idx > 0 {
		tok.Attr.FNum = strconv.Itoa(idx)
	}
	return tok, true
}

func (s *Scanner) matchMacroAN(text string, pos int) (Token, bool) {
	if pos+1 >= len(text) || text[pos] != '{' {
		return Token{}, false
	}
	// the alphanumeric index may contain lower case letters, so the name
	// is scanned up to the last dot before the closing brace
	end := pos + 1
	for end < len(text) && text[end] != '}' && text[end] != '{' {
		end++
	}
	if end >= len(text) || text[end] != '}' {
		return Token{}, false
	}
	body := text[pos+1 : end]
	for i := len(body) - 1; i > 0; i-- {
		if body[i] != '.' {
			continue
		}
		base := "{" + body[:i] + "}"
		idx := body[i+1:]
		if !s.macrosAN[base] || idx == "" || !isIndex(idx) {
			return Token{}, false
		}
		tok := Token{Len: end + 1 - pos, Attr: Attributes{Macro: base, FNum: idx}}
		if n, err := strconv.Atoi(idx); err == nil {
			tok.Attr.N = n
		}
		return tok, true
	}
	return Token{}, false
}

func isIndex(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isAlnum(s[i]) && s[i] != '_' {
			return false
		}
	}
	return true
}

// funcCall parses .name(params)} at text[i:], the tail of a macro function.
func funcCall(text string, i int) (*Func, int, bool) {
	fn, end, ok := funcTail(text, i)
	if !ok || end >= len(text) || text[end] != '}' {
		return nil, 0, false
	}
	return fn, end + 1, true
}

// funcTail parses .name(params) at text[i:] and returns the offset just
// past the closing parenthesis.
func funcTail(text string, i int) (*Func, int, bool) {
	if i >= len(text) || text[i] != '.' {
		return nil, 0, false
	}
	i++
	start := i
	for i < len(text) && ((text[i] >= 'a' && text[i] <= 'z') || text[i] == '_') {
		i++
	}
	if i == start || i >= len(text) || text[i] != '(' {
		return nil, 0, false
	}
	name := text[start:i]

	params, end, ok := parseParams(text, i+1, ')')
	if !ok {
		return nil, 0, false
	}
	return &Func{Name: name, Params: params}, end, true
}

func (s *Scanner) matchMacroFunc(text string, pos int) (Token, bool) {
	if pos+1 >= len(text) || text[pos] != '{' || text[pos+1] != '{' {
		return Token{}, false
	}

	var (
		tok   Token
		inner int
	)
	if u, ok := userMacro(text, pos+1); ok && s.g.UserMacros {
		tok.Attr = u.Attr
		inner = u.Len
	} else {
		macro, n, ok := plainMacro(text, pos+1)
		if !ok {
			return Token{}, false
		}
		base, idx, ok := splitIndex(macro, s.macroFuncs)
		if !ok {
			return Token{}, false
		}
		tok.Attr = Attributes{Macro: base, N: idx}
		if idx > 0 {
			tok.Attr.FNum = strconv.Itoa(idx)
		}
		inner = n
	}

	fn, end, ok := funcCall(text, pos+1+inner)
	if !ok {
		return Token{}, false
	}
	tok.Attr.Func = fn
	tok.Len = end - pos
	return tok, true
}

func (s *Scanner) matchReference(text string, pos int) (Token, bool) {
	if pos+1 >= len(text) || text[pos] != '$' {
		return Token{}, false
	}
	d := text[pos+1]
	if d < '1' || d > '9' {
		return Token{}, false
	}
	return Token{Len: 2, Attr: Attributes{N: int(d - '0'), FNum: string(d)}}, true
}

// lldMacro parses {#NAME} at pos.
func lldMacro(text string, pos int) (string, int, bool) {
	if pos+2 >= len(text) || text[pos] != '{' || text[pos+1] != '#' {
		return "", 0, false
	}
	end := macroName(text, pos+2)
	if end == pos+2 || end >= len(text) || text[end] != '}' {
		return "", 0, false
	}
	return text[pos+2 : end], end + 1 - pos, true
}

func (s *Scanner) matchLLDMacro(text string, pos int) (Token, bool) {
	if s.g.LLDMacroFuncs && hasPrefixAt(text, pos, "{{#") {
		if name, n, ok := lldMacro(text, pos+1); ok {
			if fn, end, ok := funcCall(text, pos+1+n); ok {
				return Token{Len: end - pos, Attr: Attributes{Macro: "{#" + name + "}", Name: name, Func: fn}}, true
			}
		}
	}
	if !s.g.LLDMacros {
		return Token{}, false
	}
	name, n, ok := lldMacro(text, pos)
	if !ok {
		return Token{}, false
	}
	return Token{Len: n, Attr: Attributes{Macro: "{#" + name + "}", Name: name}}, true
}

func (s *Scanner) matchFunctionID(text string, pos int) (Token, bool) {
	i := pos + 1
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if i == pos+1 || i >= len(text) || text[i] != '}' {
		return Token{}, false
	}
	return Token{Len: i + 1 - pos, Attr: Attributes{ID: text[pos+1 : i]}}, true
}

func (s *Scanner) matchExprMacro(text string, pos int) (Token, bool) {
	if !hasPrefixAt(text, pos, "{?") {
		return Token{}, false
	}
	depth := 1
	for i := pos + 2; i < len(text); i++ {
		switch text[i] {
		case '"':
			end, ok := quotedEnd(text, i)
			if !ok {
				return Token{}, false
			}
			i = end - 1
		case '{':
			depth++
		case '}':
			depth--
			if depth > 0 {
				continue
			}
			expr := text[pos+2 : i]
			if trimSpaces(expr) == "" {
				return Token{}, false
			}
			tok := Token{Len: i + 1 - pos, Attr: Attributes{Expr: expr}}
			parseExprQuery(&tok.Attr)
			return tok, true
		}
	}
	return Token{}, false
}

func trimSpaces(s string) string {
	i, j := 0, len(s)
	for i < j && s[i] == ' ' {
		i++
	}
	for j > i && s[j-1] == ' ' {
		j--
	}
	return s[i:j]
}

// parseExprQuery fills Host, Key and Func when the expression is a single
// function call whose first parameter is a /host/key query.
func parseExprQuery(attr *Attributes) {
	expr := trimSpaces(attr.Expr)
	open := 0
	for open < len(expr) && ((expr[open] >= 'a' && expr[open] <= 'z') || expr[open] == '_') {
		open++
	}
	if open == 0 || open >= len(expr) || expr[open] != '(' || expr[len(expr)-1] != ')' {
		return
	}
	name := expr[:open]

	i := skipSpaces(expr, open+1)
	if i >= len(expr) || expr[i] != '/' {
		return
	}
	hostStart := i + 1
	hostEnd := hostStart
	for hostEnd < len(expr) && expr[hostEnd] != '/' {
		if expr[hostEnd] == '{' {
			for hostEnd < len(expr) && expr[hostEnd] != '}' {
				hostEnd++
			}
		}
		hostEnd++
	}
	if hostEnd >= len(expr) {
		return
	}

	keyStart := hostEnd + 1
	keyEnd := keyStart
	for keyEnd < len(expr) && isKeyChar(expr[keyEnd]) {
		keyEnd++
	}
	if keyEnd == keyStart {
		return
	}
	if keyEnd < len(expr) && expr[keyEnd] == '[' {
		end, ok := arrayEnd(expr, keyEnd)
		if !ok {
			return
		}
		keyEnd = end
	}

	rest := skipSpaces(expr, keyEnd)
	if rest >= len(expr) {
		return
	}
	var params []string
	switch expr[rest] {
	case ')':
		if rest != len(expr)-1 {
			return
		}
	case ',':
		ps, end, ok := parseParams(expr, rest+1, ')')
		if !ok || end != len(expr) {
			return
		}
		params = ps
	default:
		return
	}

	attr.Host = expr[hostStart:hostEnd]
	attr.Key = expr[keyStart:keyEnd]
	attr.Func = &Func{Name: name, Params: params}
}

func (s *Scanner) matchReplacement(text string, pos int) (Token, bool) {
	if pos+1 >= len(text) || text[pos] != '\\' {
		return Token{}, false
	}
	d := text[pos+1]
	if d < '0' || d > '9' {
		return Token{}, false
	}
	return Token{Len: 2, Attr: Attributes{N: int(d - '0'), FNum: string(d)}}, true
}
