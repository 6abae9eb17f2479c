package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Clock is a time of day in minutes since midnight. 24:00 (1440) is a valid
// closing boundary; anything beyond is not.
type Clock int

const (
	MinutesPerDay       = 24 * 60
	DayEnd        Clock = MinutesPerDay
)

func At(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock accepts "H:MM" or "HH:MM".
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(m) != 2 || len(h) == 0 || len(h) > 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	c := At(hour, minute)
	if c > DayEnd {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return c, nil
}

func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// String renders the zero-padded "HH:MM" form used on the wire.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) Valid() bool {
	return c >= 0 && c <= DayEnd
}

func (c Clock) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("clock %d out of range", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
