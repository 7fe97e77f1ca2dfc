package util

import "time"

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Clock returns the current time; services take one so tests can pin "now".
type Clock func() time.Time

// Now calls the clock, falling back to NowUTC when unset.
func (c Clock) Now() time.Time {
	if c == nil {
		return NowUTC()
	}
	return c()
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
