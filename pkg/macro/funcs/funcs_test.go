// SPDX-License-Identifier: GPL-3.0-or-later

package funcs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestProcessor() *Processor {
	return New(Config{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, time.March, 15, 12, 30, 45, 0, time.UTC) },
	})
}

func TestProcessor_Apply_Regsub(t *testing.T) {
	tests := map[string]struct {
		fn     string
		params []string
		value  string
		want   string
	}{
		"strips scheme": {
			fn:     FuncRegsub,
			params: []string{"^https://(.+)$", `\1`},
			value:  "https://example.com",
			want:   "example.com",
		},
		"no match": {
			fn:     FuncRegsub,
			params: []string{"^https://(.+)$", `\1`},
			value:  "ftp://example.com",
			want:   UnresolvedSentinel,
		},
		"whole match and missing groups": {
			fn:     FuncRegsub,
			params: []string{"([a-z]+)([0-9]+)", `\1-\2 \0 [\9]`},
			value:  "ab12",
			want:   "ab-12 ab12 []",
		},
		"non participating group is empty": {
			fn:     FuncRegsub,
			params: []string{"(a)|(b)", `[\1][\2]`},
			value:  "b",
			want:   "[][b]",
		},
		"template without placeholders": {
			fn:     FuncRegsub,
			params: []string{"up", "ok"},
			value:  "link is up",
			want:   "ok",
		},
		"case sensitive": {
			fn:     FuncRegsub,
			params: []string{`ETH(\d)`, `\1`},
			value:  "eth0",
			want:   UnresolvedSentinel,
		},
		"case insensitive": {
			fn:     FuncIRegsub,
			params: []string{`ETH(\d)`, `\1`},
			value:  "eth0",
			want:   "0",
		},
		"bad pattern": {
			fn:     FuncRegsub,
			params: []string{"(", `\1`},
			value:  "x",
			want:   UnresolvedSentinel,
		},
		"one param": {
			fn:     FuncRegsub,
			params: []string{"x"},
			value:  "x",
			want:   UnresolvedSentinel,
		},
		"three params": {
			fn:     FuncIRegsub,
			params: []string{"x", "y", "z"},
			value:  "x",
			want:   UnresolvedSentinel,
		},
		"masked secret never leaks": {
			fn:     FuncRegsub,
			params: []string{"(.*)", `\1`},
			value:  "******",
			want:   "******",
		},
	}

	p := newTestProcessor()
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, p.Apply(test.fn, test.params, test.value))
		})
	}
}

func TestProcessor_Apply_FmtNum(t *testing.T) {
	tests := map[string]struct {
		params []string
		value  string
		want   string
	}{
		"float rounded":          {params: []string{"2"}, value: "3.14159", want: "3.14"},
		"float zero digits":      {params: []string{"0"}, value: "2.7", want: "3"},
		"float max digits":       {params: []string{"20"}, value: "1.5", want: "1.50000000000000000000"},
		"exponent":               {params: []string{"3"}, value: "1e3", want: "1000.000"},
		"integer unchanged":      {params: []string{"2"}, value: "42", want: "42"},
		"negative integer":       {params: []string{"2"}, value: "-7", want: "-7"},
		"big unsigned unchanged": {params: []string{"1"}, value: "18446744073709551615", want: "18446744073709551615"},
		"too many digits":        {params: []string{"21"}, value: "1.5", want: UnresolvedSentinel},
		"digits not a number":    {params: []string{"a"}, value: "1.5", want: UnresolvedSentinel},
		"negative digits":        {params: []string{"-1"}, value: "1.5", want: UnresolvedSentinel},
		"value not a number":     {params: []string{"2"}, value: "abc", want: UnresolvedSentinel},
		"value NaN":              {params: []string{"2"}, value: "NaN", want: UnresolvedSentinel},
		"no params":              {params: nil, value: "1.5", want: UnresolvedSentinel},
		"masked secret":          {params: []string{"2"}, value: "******", want: UnresolvedSentinel},
	}

	p := newTestProcessor()
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, p.Apply(FuncFmtNum, test.params, test.value))
		})
	}
}

func TestProcessor_Apply_FmtTime(t *testing.T) {
	// 1700000000 is Tue 2023-11-14 22:13:20 UTC.
	tests := map[string]struct {
		params []string
		value  string
		want   string
	}{
		"unix timestamp": {
			params: []string{"%Y-%m-%d %H:%M:%S"},
			value:  "1700000000",
			want:   "2023-11-14 22:13:20",
		},
		"names and padding": {
			params: []string{"%b %e %a %j %p %I %y %%"},
			value:  "1700000000",
			want:   "Nov 14 Tue 318 PM 10 23 %",
		},
		"iso timestamp": {
			params: []string{"%Y-%m-%d"},
			value:  "2024-01-05T10:00:00Z",
			want:   "2024-01-05",
		},
		"time of day is today": {
			params: []string{"%F %T"},
			value:  "08:15",
			want:   "2024-03-15 08:15:00",
		},
		"shift back one hour": {
			params: []string{"%H:%M", "-1h"},
			value:  "1700000000",
			want:   "21:13",
		},
		"shift and round to day": {
			params: []string{"%d.%m.%Y %T", "-1d/d"},
			value:  "1700000000",
			want:   "13.11.2023 00:00:00",
		},
		"start of week is monday": {
			params: []string{"%F %T %A", "/w"},
			value:  "1700000000",
			want:   "2023-11-13 00:00:00 Monday",
		},
		"start of month plus days": {
			params: []string{"%F", "/M+2d"},
			value:  "1700000000",
			want:   "2023-11-03",
		},
		"empty shift": {
			params: []string{"%s", ""},
			value:  "1700000000",
			want:   "1700000000",
		},
		"unknown directive kept": {
			params: []string{"%Q %H"},
			value:  "1700000000",
			want:   "%Q 22",
		},
		"bad shift unit":   {params: []string{"%Y", "-1x"}, value: "1700000000", want: UnresolvedSentinel},
		"bad shift syntax": {params: []string{"%Y", "1h"}, value: "1700000000", want: UnresolvedSentinel},
		"bad time of day":  {params: []string{"%H"}, value: "25:00", want: UnresolvedSentinel},
		"hours overflow":   {params: []string{"%Y-%m-%d %H:%M", "+3000000h"}, value: "1700000000", want: UnresolvedSentinel},
		"hours underflow":  {params: []string{"%Y-%m-%d %H:%M", "-3000000h"}, value: "1700000000", want: UnresolvedSentinel},
		"seconds overflow": {params: []string{"%Y", "+9999999999999s"}, value: "1700000000", want: UnresolvedSentinel},
		"days too far":     {params: []string{"%Y", "-99999999d"}, value: "1700000000", want: UnresolvedSentinel},
		"years too far":    {params: []string{"%Y", "+20000y"}, value: "1700000000", want: UnresolvedSentinel},
		"garbage value":    {params: []string{"%Y"}, value: "garbage", want: UnresolvedSentinel},
		"empty value":      {params: []string{"%Y"}, value: "", want: UnresolvedSentinel},
		"no params":        {params: nil, value: "1700000000", want: UnresolvedSentinel},
		"three params":     {params: []string{"%Y", "-1h", "x"}, value: "1700000000", want: UnresolvedSentinel},
	}

	p := newTestProcessor()
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, p.Apply(FuncFmtTime, test.params, test.value))
		})
	}
}

func TestProcessor_Apply_UnknownFunction(t *testing.T) {
	p := New(Config{Sentinel: "n/a"})

	assert.Equal(t, "n/a", p.Apply("upper", nil, "x"))
	assert.Equal(t, "n/a", p.Sentinel())
}

func TestSupported(t *testing.T) {
	for _, name := range []string{FuncRegsub, FuncIRegsub, FuncFmtNum, FuncFmtTime} {
		assert.True(t, Supported(name), name)
	}
	assert.False(t, Supported("btoa"))
}
