package equity

import (
	"fmt"
	"time"
)

const (
	// DefaultWindowDays is the span of one feed request after its start day
	DefaultWindowDays = 20
	// DefaultStrideDays advances the next request past the previous end day
	DefaultStrideDays = 21
)

// Window is an inclusive calendar date range of one feed request
type Window struct {
	Start time.Time
	End   time.Time
}

// String renders the window in the feed's YYYYMMDD form
func (w Window) String() string {
	return fmt.Sprintf("%s-%s", w.Start.Format(feedDateLayout), w.End.Format(feedDateLayout))
}

// Contains reports whether t falls on a day inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End.Add(24*time.Hour-time.Nanosecond))
}

// Windows splits [start, end] into request windows [s, s+size] whose
// starts advance by stride days. The last window is clipped to end.
// With stride = size+1 the windows tile the range without overlap.
func Windows(start, end time.Time, size, stride int) []Window {
	if end.Before(start) || size < 0 || stride < 1 {
		return nil
	}

	var out []Window
	for s := start; !s.After(end); s = s.AddDate(0, 0, stride) {
		e := s.AddDate(0, 0, size)
		if e.After(end) {
			e = end
		}
		out = append(out, Window{Start: s, End: e})
	}
	return out
}
