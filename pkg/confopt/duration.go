// SPDX-License-Identifier: GPL-3.0-or-later

package confopt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a config duration. It accepts Go durations ("1m30s"),
// time suffixed integers ("2d", "1w") and plain numbers of seconds.
// It marshals as seconds.
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return d.Duration().String() }

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.set(s)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if v, err := strconv.Unquote(s); err == nil {
		s = v
	}
	return d.set(s)
}

func (d Duration) MarshalYAML() (any, error) { return d.seconds(), nil }

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.seconds()) }

func (d Duration) seconds() float64 { return float64(d) / float64(time.Second) }

func (d *Duration) set(s string) error {
	s = strings.TrimSpace(s)

	if v, ok := ParseTimeSuffix(s); ok {
		*d = Duration(v)
		return nil
	}
	if v, err := time.ParseDuration(s); err == nil {
		*d = Duration(v)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*d = Duration(v * float64(time.Second))
		return nil
	}
	return fmt.Errorf("unparsable duration format '%s'", s)
}

var suffixUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseTimeSuffix parses a non-negative integer with an optional s, m, h, d
// or w suffix, as used in macro values and item time shifts. No suffix
// means seconds.
func ParseTimeSuffix(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	unit := time.Second
	if u, ok := suffixUnits[s[len(s)-1]]; ok {
		unit, s = u, s[:len(s)-1]
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, false
	}
	return time.Duration(v) * unit, true
}
