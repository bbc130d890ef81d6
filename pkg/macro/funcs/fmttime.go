// SPDX-License-Identifier: GPL-3.0-or-later

package funcs

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

func (p *Processor) fmttime(params []string, value string) (string, bool) {
	if len(params) < 1 || len(params) > 2 {
		return "", false
	}

	t, ok := p.parseTime(value)
	if !ok {
		return "", false
	}
	if len(params) == 2 && params[1] != "" {
		if t, ok = shiftTime(t, params[1]); !ok {
			return "", false
		}
	}
	return strftime(params[0], t), true
}

// parseTime accepts a Unix timestamp, a bare time of day (today) or any
// date layout dateparse understands, and returns it in the processor zone.
func (p *Processor) parseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if isDigits(value) {
		sec, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(sec, 0).In(p.loc), true
	}

	if isClock(value) {
		return p.parseTimeOfDay(value)
	}

	t, err := dateparse.ParseIn(value, p.loc)
	if err != nil {
		return time.Time{}, false
	}
	return t.In(p.loc), true
}

// isClock reports whether value has the HH:MM or HH:MM:SS shape.
func isClock(value string) bool {
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return false
	}
	for _, part := range parts {
		if len(part) == 0 || len(part) > 2 || !isDigits(part) {
			return false
		}
	}
	return true
}

// parseTimeOfDay parses a clock value as a time today.
func (p *Processor) parseTimeOfDay(value string) (time.Time, bool) {
	var hms [3]int
	for i, part := range strings.Split(value, ":") {
		hms[i], _ = strconv.Atoi(part)
	}
	if hms[0] > 23 || hms[1] > 59 || hms[2] > 59 {
		return time.Time{}, false
	}

	now := p.now().In(p.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), hms[0], hms[1], hms[2], 0, p.loc), true
}

func isDigits(s string) bool {
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

// shiftTime applies a relative time expression such as "-1h", "+30m",
// "-1d/d" or "/w". Operations are applied left to right; "/unit" rounds
// down to the start of the unit.
func shiftTime(t time.Time, expr string) (time.Time, bool) {
	i := 0
	for i < len(expr) {
		switch c := expr[i]; c {
		case '+', '-':
			j := i + 1
			for j < len(expr) && expr[j] >= '0' && expr[j] <= '9' {
				j++
			}
			if j == i+1 {
				return time.Time{}, false
			}
			n, err := strconv.Atoi(expr[i+1 : j])
			if err != nil {
				return time.Time{}, false
			}
			if c == '-' {
				n = -n
			}
			unit := byte('s')
			if j < len(expr) && expr[j] != '+' && expr[j] != '-' && expr[j] != '/' {
				unit = expr[j]
				j++
			}
			var ok bool
			if t, ok = addUnits(t, n, unit); !ok {
				return time.Time{}, false
			}
			i = j
		case '/':
			if i+1 >= len(expr) {
				return time.Time{}, false
			}
			var ok bool
			if t, ok = startOf(t, expr[i+1]); !ok {
				return time.Time{}, false
			}
			i += 2
		default:
			return time.Time{}, false
		}
	}
	return t, true
}

// maxShift bounds a single shift: clock units must fit a time.Duration,
// calendar units stay within 10000 years.
var maxShift = map[byte]int{
	's': math.MaxInt / int(time.Second),
	'm': math.MaxInt / int(time.Minute),
	'h': math.MaxInt / int(time.Hour),
	'd': 10000 * 366,
	'w': 10000 * 53,
	'M': 10000 * 12,
	'y': 10000,
}

func addUnits(t time.Time, n int, unit byte) (time.Time, bool) {
	if limit, ok := maxShift[unit]; !ok || n > limit || n < -limit {
		return time.Time{}, false
	}
	switch unit {
	case 's':
		return t.Add(time.Duration(n) * time.Second), true
	case 'm':
		return t.Add(time.Duration(n) * time.Minute), true
	case 'h':
		return t.Add(time.Duration(n) * time.Hour), true
	case 'd':
		return t.AddDate(0, 0, n), true
	case 'w':
		return t.AddDate(0, 0, 7*n), true
	case 'M':
		return t.AddDate(0, n, 0), true
	case 'y':
		return t.AddDate(n, 0, 0), true
	}
	return time.Time{}, false
}

func startOf(t time.Time, unit byte) (time.Time, bool) {
	y, mo, d := t.Date()
	loc := t.Location()
	switch unit {
	case 'm':
		return time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, loc), true
	case 'h':
		return time.Date(y, mo, d, t.Hour(), 0, 0, 0, loc), true
	case 'd':
		return time.Date(y, mo, d, 0, 0, 0, 0, loc), true
	case 'w':
		// weeks start on Monday
		back := (int(t.Weekday()) + 6) % 7
		return time.Date(y, mo, d-back, 0, 0, 0, 0, loc), true
	case 'M':
		return time.Date(y, mo, 1, 0, 0, 0, 0, loc), true
	case 'y':
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}
