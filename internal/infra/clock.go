package infra

import "time"

// Clock abstracts "now" so time-gated transitions (auction end, bid windows)
// are deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
