// Package window computes the rolling "this week" interval shared by every source.
package window

import (
	"time"

	"github.com/JakeFAU/contest-digest/internal/contest"
)

// Length is the width of the digest window.
const Length = 7 * 24 * time.Hour

// Compute returns [now, now+7d) anchored in loc and expressed in UTC.
// now is truncated to the minute first so the boundaries are stable within a run.
func Compute(now time.Time, loc *time.Location) contest.Window {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), 0, 0, loc)
	return contest.Window{
		Start: start.UTC(),
		End:   start.Add(Length).UTC(),
	}
}
