package clock

import "time"

// Clock supplies the current time. Production code uses RealClock; tests
// substitute a fixed implementation.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}
