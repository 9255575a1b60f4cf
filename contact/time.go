package contact

import "time"

// TimeProvider abstracts time for deterministic tests.
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider uses the wall clock.
type DefaultTimeProvider struct{}

// Now returns time.Now().
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

var defaultTimeProvider TimeProvider = DefaultTimeProvider{}
