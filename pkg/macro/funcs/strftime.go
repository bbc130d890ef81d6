// SPDX-License-Identifier: GPL-3.0-or-later

package funcs

import (
	"strconv"
	"strings"
	"time"
)

// strftime formats t with C strftime conversion specifications. Unknown
// specifications are written as is.
func strftime(format string, t time.Time) string {
	var b strings.Builder
	b.Grow(len(format) + 16)

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			b.WriteByte(c)
			continue
		}
		i++
		switch spec := format[i]; spec {
		case 'a':
			b.WriteString(t.Format("Mon"))
		case 'A':
			b.WriteString(t.Format("Monday"))
		case 'b', 'h':
			b.WriteString(t.Format("Jan"))
		case 'B':
			b.WriteString(t.Format("January"))
		case 'c':
			b.WriteString(t.Format("Mon Jan  2 15:04:05 2006"))
		case 'C':
			pad(&b, t.Year()/100, 2, '0')
		case 'd':
			pad(&b, t.Day(), 2, '0')
		case 'D':
			b.WriteString(t.Format("01/02/06"))
		case 'e':
			pad(&b, t.Day(), 2, ' ')
		case 'F':
			b.WriteString(t.Format("2006-01-02"))
		case 'H':
			pad(&b, t.Hour(), 2, '0')
		case 'I':
			pad(&b, hour12(t), 2, '0')
		case 'j':
			pad(&b, t.YearDay(), 3, '0')
		case 'k':
			pad(&b, t.Hour(), 2, ' ')
		case 'l':
			pad(&b, hour12(t), 2, ' ')
		case 'm':
			pad(&b, int(t.Month()), 2, '0')
		case 'M':
			pad(&b, t.Minute(), 2, '0')
		case 'n':
			b.WriteByte('\n')
		case 'p':
			b.WriteString(t.Format("PM"))
		case 'R':
			b.WriteString(t.Format("15:04"))
		case 's':
			b.WriteString(strconv.FormatInt(t.Unix(), 10))
		case 'S':
			pad(&b, t.Second(), 2, '0')
		case 't':
			b.WriteByte('\t')
		case 'T':
			b.WriteString(t.Format("15:04:05"))
		case 'u':
			wd := int(t.Weekday())
			if wd == 0 {
				wd = 7
			}
			b.WriteString(strconv.Itoa(wd))
		case 'w':
			b.WriteString(strconv.Itoa(int(t.Weekday())))
		case 'y':
			pad(&b, t.Year()%100, 2, '0')
		case 'Y':
			b.WriteString(strconv.Itoa(t.Year()))
		case 'z':
			b.WriteString(t.Format("-0700"))
		case 'Z':
			b.WriteString(t.Format("MST"))
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(spec)
		}
	}
	return b.String()
}

func hour12(t time.Time) int {
	h := t.Hour() % 12
	if h == 0 {
		h = 12
	}
	return h
}

func pad(b *strings.Builder, v, width int, fill byte) {
	s := strconv.Itoa(v)
	for i := len(s); i < width; i++ {
		b.WriteByte(fill)
	}
	b.WriteString(s)
}
