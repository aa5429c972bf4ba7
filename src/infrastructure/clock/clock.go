package clock

import "time"

// Clock allows injecting time in services and repositories.
//
// Instants are UTC and truncated to milliseconds, the precision MongoDB keeps,
// so values survive a store round trip unchanged.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always returns the same instant.
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC().Truncate(time.Millisecond)}
}

func (f fixedClock) Now() time.Time {
	return f.now
}
