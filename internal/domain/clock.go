package domain

import "time"

// Clock supplies the current time. Every operation reads the clock once at
// its start; nothing in the core sleeps or schedules. Injecting the clock
// keeps the window arithmetic deterministic under test.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock {
	return ClockFunc(func() time.Time { return time.Now().UTC() })
}
