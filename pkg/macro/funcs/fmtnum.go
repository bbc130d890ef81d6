// SPDX-License-Identifier: GPL-3.0-or-later

package funcs

import (
	"math"
	"strconv"
)

const maxFmtNumDigits = 20

func fmtnum(params []string, value string) (string, bool) {
	if len(params) != 1 {
		return "", false
	}
	digits, ok := parseDigits(params[0])
	if !ok || digits > maxFmtNumDigits {
		return "", false
	}

	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return value, true
	}
	if _, err := strconv.ParseUint(value, 10, 64); err == nil {
		return value, true
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', digits, 64), true
}

// parseDigits accepts only plain decimal digits.
func parseDigits(s string) (int, bool) {
	if s == "" || len(s) > 3 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}
