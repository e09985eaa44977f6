package auth

import "time"

// Clock abstracts wall-clock reads so lockout windows, token expiries, and
// TOTP checks can be tested with a simulated clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
