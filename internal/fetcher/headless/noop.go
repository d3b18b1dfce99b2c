package headless

import (
	"context"
	"errors"
)

// ErrBrowserDisabled is returned by Noop.
var ErrBrowserDisabled = errors.New("headless browser disabled")

// Noop stands in for the browser when rendering is turned off, so callers
// take their non-browser path.
type Noop struct{}

// NewNoop creates a new Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// Render always fails with ErrBrowserDisabled.
func (Noop) Render(_ context.Context, _ string) (string, error) {
	return "", ErrBrowserDisabled
}
