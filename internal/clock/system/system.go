// Package system provides the wall clock used to anchor each digest run.
package system

import "time"

// Clock implements app.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current instant in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
