// SPDX-License-Identifier: GPL-3.0-or-later

package token

import "strings"

// Quoting rule shared by macro function parameters, user macro contexts and
// item key parameters: a quoted value runs to the next unescaped '"', and
// only \" is an escape sequence inside it. Every other backslash is kept,
// so "\1" stays \1.

// quotedEnd returns the offset just past the closing quote of the quoted
// string starting at s[i].
func quotedEnd(s string, i int) (int, bool) {
	if i >= len(s) || s[i] != '"' {
		return 0, false
	}
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			if j+1 < len(s) && s[j+1] == '"' {
				j++
			}
		case '"':
			return j + 1, true
		}
	}
	return 0, false
}

// Unquote strips the surrounding quotes of a quoted value and resolves \"
// escapes. Values that are not quoted are returned unchanged.
func Unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
}

// Quote is the inverse of Unquote.
func Quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// QuoteIfNeeded quotes values that could not be written unquoted as a
// parameter.
func QuoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, `,"[]()`) || s[0] == ' ' || s[len(s)-1] == ' ' {
		return Quote(s)
	}
	return s
}

func skipSpaces(s string, i int) int {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

// parseParams parses a comma separated parameter list starting right after
// the opening bracket at s[i-1]. It returns the de-quoted parameters and the
// offset just past the closer. Nested [...] arrays are kept raw, which only
// item keys use.
func parseParams(s string, i int, closer byte) ([]string, int, bool) {
	i = skipSpaces(s, i)
	if i < len(s) && s[i] == closer {
		return nil, i + 1, true
	}

	var params []string
	for {
		i = skipSpaces(s, i)
		if i >= len(s) {
			return nil, 0, false
		}

		var param string
		switch {
		case s[i] == '"':
			end, ok := quotedEnd(s, i)
			if !ok {
				return nil, 0, false
			}
			param = Unquote(s[i:end])
			i = skipSpaces(s, end)
		case s[i] == '[' && closer == ']':
			end, ok := arrayEnd(s, i)
			if !ok {
				return nil, 0, false
			}
			param = s[i:end]
			i = skipSpaces(s, end)
		default:
			start := i
			for i < len(s) && s[i] != ',' && s[i] != closer {
				if closer == ')' && (s[i] == '(' || s[i] == '}') {
					return nil, 0, false
				}
				i++
			}
			param = strings.TrimRight(s[start:i], " ")
		}

		if i >= len(s) {
			return nil, 0, false
		}
		params = append(params, param)

		switch s[i] {
		case ',':
			i++
		case closer:
			return params, i + 1, true
		default:
			return nil, 0, false
		}
	}
}

// arrayEnd returns the offset just past the ']' matching the '[' at s[i].
func arrayEnd(s string, i int) (int, bool) {
	depth := 0
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '"':
			end, ok := quotedEnd(s, j)
			if !ok {
				return 0, false
			}
			j = end - 1
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return j + 1, true
			}
		}
	}
	return 0, false
}

func isKeyChar(c byte) bool {
	return isAlnum(c) || c == '_' || c == '-' || c == '.'
}

// ParseItemKey splits an item key such as net.if.in["eth0",bytes] into its
// name and de-quoted parameters.
func ParseItemKey(key string) (name string, params []string, ok bool) {
	i := 0
	for i < len(key) && isKeyChar(key[i]) {
		i++
	}
	if i == 0 {
		return "", nil, false
	}
	name = key[:i]
	if i == len(key) {
		return name, nil, true
	}
	if key[i] != '[' {
		return "", nil, false
	}

	params, end, ok := parseParams(key, i+1, ']')
	if !ok || end != len(key) {
		return "", nil, false
	}
	if params == nil {
		params = []string{""}
	}
	return name, params, true
}
