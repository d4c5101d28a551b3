package types

import "time"

// Clock abstracts time.Now for testability. Services that make time-based
// decisions (session expiry, brute force windows) accept a Clock so tests
// can pin the current instant.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by time.Now.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }
