// SPDX-License-Identifier: GPL-3.0-or-later

package sqlquery

import (
	"fmt"
	"strconv"
	"strings"
)

type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

// StyleForDriver returns the placeholder style of a database/sql driver.
func StyleForDriver(driver string) (PlaceholderStyle, error) {
	switch driver {
	case "mysql", "sqlite":
		return PlaceholderQuestion, nil
	case "pgx", "postgres", "postgresql":
		return PlaceholderDollar, nil
	default:
		return 0, fmt.Errorf("unsupported driver '%s'", driver)
	}
}

// Placeholders returns n comma separated placeholders, numbered from
// first for the dollar style: "?, ?" or "$3, $4".
func (s PlaceholderStyle) Placeholders(first, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		if s == PlaceholderDollar {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(first + i))
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

// Placeholder returns the nth placeholder.
func (s PlaceholderStyle) Placeholder(n int) string {
	return s.Placeholders(n, 1)
}

// Args converts strings to query arguments.
func Args[T ~string](values []T) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = string(v)
	}
	return args
}
