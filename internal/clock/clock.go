package clock

import (
	"fmt"
	"time"
)

// Clock supplies the current instant. Services take it as a dependency so
// lifecycle and scheduling computations stay deterministic under test.
type Clock interface {
	Now() time.Time
}

// System is the wall-clock implementation.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed is a Clock pinned to one instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// FormatUTC renders an instant in the fixed storage format: RFC3339 in UTC.
// Stored timestamps are never native time values, so the tables stay
// portable and lexicographically comparable.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseUTC reads a stored timestamp back into a UTC instant.
func ParseUTC(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// InZone converts t into the named IANA zone for display. Empty or unknown
// names fall back to UTC rather than failing the render.
func InZone(t time.Time, name string) time.Time {
	if name == "" {
		return t.UTC()
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return t.UTC()
	}
	return t.In(loc)
}
