package contest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowContainsIsHalfOpen(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC)
	w := Window{Start: start, End: start.Add(7 * 24 * time.Hour)}

	assert.True(t, w.Contains(start))
	assert.True(t, w.Contains(w.End.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.Contains(start.Add(-time.Minute)))
}

func TestResultUnavailable(t *testing.T) {
	t.Parallel()

	assert.False(t, Result{Source: SourceLuogu}.Unavailable())
	assert.True(t, Result{Source: SourceLuogu, Err: errors.New("boom")}.Unavailable())
}
