package typeutil

import (
	"fmt"
	"time"

	"github.com/pingcap/errors"
)

// Duration wraps time.Duration so it can be written as a string ("10ms") in toml and json.
type Duration struct {
	time.Duration
}

// NewDuration creates a Duration from time.Duration.
func NewDuration(duration time.Duration) Duration {
	return Duration{Duration: duration}
}

// MarshalJSON returns the duration as a JSON string.
func (d *Duration) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, d.String())), nil
}

// UnmarshalText parses a TOML string into a duration.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return errors.Trace(err)
}

// MarshalText returns the duration as a TOML string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
