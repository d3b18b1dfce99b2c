package contest

import (
	"fmt"
	"time"
)

// FormatLabel renders t in its own location as "M/D(Mon) HH:MM".
func FormatLabel(t time.Time) string {
	return fmt.Sprintf("%d/%d(%s) %02d:%02d", int(t.Month()), t.Day(), t.Weekday().String()[:3], t.Hour(), t.Minute())
}

// FormatLabelRange renders "M/D(Mon) HH:MM-HH:MM"; the end date is implied by the start.
func FormatLabelRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%02d:%02d", FormatLabel(start), end.Hour(), end.Minute())
}
