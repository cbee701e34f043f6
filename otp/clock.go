package otp

import "time"

// Clocker abstracts time so tests can pin the current instant.
type Clocker interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the host wall clock.
func SystemClock() Clocker { return systemClock{} }
