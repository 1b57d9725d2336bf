// Package clock formats timestamps the way the API exposes them.
package clock

import "time"

// ISOLayout is ISO-8601 UTC with millisecond precision, e.g. 2024-03-01T09:30:00.000Z.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// Func returns the current time. Tests inject fixed clocks.
type Func func() time.Time

// Now is the production clock.
func Now() time.Time {
	return time.Now().UTC()
}

// Format renders t in ISOLayout.
func Format(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// Fixed returns a clock that always reports t.
func Fixed(t time.Time) Func {
	return func() time.Time { return t }
}
