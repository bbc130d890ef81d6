// SPDX-License-Identifier: GPL-3.0-or-later

package scope

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// natural orders digit runs by numeric value: "host9" < "host10".
var natural = struct {
	mu sync.Mutex
	c  *collate.Collator
}{
	c: collate.New(language.Und, collate.Numeric),
}

// Compare orders strings naturally; strings the collator treats as equal
// are ordered bytewise so the order is total.
func Compare(a, b string) int {
	if a == b {
		return 0
	}
	natural.mu.Lock()
	r := natural.c.CompareString(a, b)
	natural.mu.Unlock()
	if r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

// SortIDs sorts ids in place in natural order.
func SortIDs(ids []ID) {
	slices.SortFunc(ids, func(a, b ID) int { return Compare(string(a), string(b)) })
}

// SortedUnique returns the distinct ids in natural order.
func SortedUnique(ids []ID) []ID {
	out := slices.Clone(ids)
	SortIDs(out)
	return slices.Compact(out)
}
