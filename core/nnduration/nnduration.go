// Package nnduration provides JSON-compatible non-negative duration types.
package nnduration

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"
)

func parse(input string, unit time.Duration) (value uint64, e error) {
	if d, e := time.ParseDuration(input); e == nil {
		if d < 0 {
			return 0, strconv.ErrRange
		}
		return uint64(d / unit), nil
	}
	return strconv.ParseUint(input, 10, 64)
}

func unmarshalJSON(ptr any, p []byte, unit time.Duration) error {
	value, e := parse(strings.Trim(string(p), `"`), unit)
	if e != nil {
		return e
	}
	reflect.ValueOf(ptr).Elem().SetUint(value)
	return nil
}

// Milliseconds is a duration in milliseconds.
// In JSON, it can be either a non-negative integer or a duration string recognized by time.ParseDuration.
type Milliseconds uint64

// Duration converts to time.Duration.
func (d Milliseconds) Duration() time.Duration {
	return time.Duration(d) * time.Millisecond
}

// DurationOr returns d as time.Duration, or dflt (in milliseconds) if d is zero.
func (d Milliseconds) DurationOr(dflt Milliseconds) time.Duration {
	if d == 0 {
		return dflt.Duration()
	}
	return d.Duration()
}

// MarshalJSON implements json.Marshaler.
func (d Milliseconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(d))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Milliseconds) UnmarshalJSON(p []byte) error {
	return unmarshalJSON(d, p, time.Millisecond)
}

// Nanoseconds is a duration in nanoseconds.
// In JSON, it can be either a non-negative integer or a duration string recognized by time.ParseDuration.
type Nanoseconds uint64

// Duration converts to time.Duration.
func (d Nanoseconds) Duration() time.Duration {
	return time.Duration(d)
}

// DurationOr returns d as time.Duration, or dflt (in nanoseconds) if d is zero.
func (d Nanoseconds) DurationOr(dflt Nanoseconds) time.Duration {
	if d == 0 {
		return dflt.Duration()
	}
	return d.Duration()
}

// MarshalJSON implements json.Marshaler.
func (d Nanoseconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(d))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Nanoseconds) UnmarshalJSON(p []byte) error {
	return unmarshalJSON(d, p, time.Nanosecond)
}
