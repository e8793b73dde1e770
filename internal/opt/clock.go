package opt

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day expressed as a signed offset from midnight.
// Arithmetic never wraps: subtracting past midnight yields a negative
// Clock, which compares earlier than any working window.
type Clock time.Duration

const day = Clock(24 * time.Hour)

// ParseClock parses "HH:MM" or "HH:MM:SS" in [00:00, 24:00).
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM or HH:MM:SS", s)
	}
	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var c Clock
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		c += Clock(time.Duration(n) * units[i])
	}
	return c, nil
}

// MustParseClock is ParseClock for literals; it panics on error.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Add(d time.Duration) Clock { return c + Clock(d) }
func (c Clock) Sub(d time.Duration) Clock { return c - Clock(d) }

func (c Clock) Before(o Clock) bool { return c < o }
func (c Clock) After(o Clock) bool  { return c > o }

// Duration returns the offset from midnight.
func (c Clock) Duration() time.Duration { return time.Duration(c) }

// String renders HH:MM, or HH:MM:SS when seconds are set. Offsets outside
// a single day keep their sign and run past 24 hours rather than wrapping.
func (c Clock) String() string {
	sign := ""
	v := c
	if v < 0 {
		sign = "-"
		v = -v
	}
	d := time.Duration(v)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	if sec != 0 {
		return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, sec)
	}
	return fmt.Sprintf("%s%02d:%02d", sign, h, m)
}

// WithinDay reports whether c lies in [00:00, 24:00).
func (c Clock) WithinDay() bool { return c >= 0 && c < day }

func (c Clock) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
