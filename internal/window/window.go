// Package window implements the date-window admission policy shared by all
// platform traversals.
package window

import (
	"fmt"
	"time"
)

// dateLayout is the only accepted caller-supplied date format.
const dateLayout = "2006-01-02"

// KST is the reference timezone for the UI-driven source.
var KST = time.FixedZone("KST", 9*60*60)

// Decision is the outcome of evaluating one item of a reverse-chronological
// stream against the window.
type Decision int

const (
	// Admit: the item's date falls inside the window (inclusive).
	Admit Decision = iota
	// Skip: the item is newer than the window end; later items may still be
	// in-window, so traversal continues.
	Skip
	// Stop: the item is older than the window start; everything after it is
	// older still, so traversal terminates.
	Stop
)

func (d Decision) String() string {
	switch d {
	case Admit:
		return "admit"
	case Skip:
		return "skip"
	default:
		return "stop"
	}
}

// Window is an inclusive date range in a fixed reference timezone.
type Window struct {
	Start time.Time
	End   time.Time
}

// Parse builds a window from strict YYYY-MM-DD bounds interpreted in loc.
// The end bound covers the whole end day.
func Parse(startDate, endDate string, loc *time.Location) (Window, error) {
	start, err := time.ParseInLocation(dateLayout, startDate, loc)
	if err != nil {
		return Window{}, fmt.Errorf("invalid start date %q: expected YYYY-MM-DD: %w", startDate, err)
	}
	end, err := time.ParseInLocation(dateLayout, endDate, loc)
	if err != nil {
		return Window{}, fmt.Errorf("invalid end date %q: expected YYYY-MM-DD: %w", endDate, err)
	}
	if end.Before(start) {
		return Window{}, fmt.Errorf("window start %s is after end %s", startDate, endDate)
	}
	// Inclusive end: extend to the last instant of the end day.
	end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)

	return Window{Start: start, End: end}, nil
}

// Evaluate applies the admission policy to one item timestamp.
func (w Window) Evaluate(t time.Time) Decision {
	if t.After(w.End) {
		return Skip
	}
	if t.Before(w.Start) {
		return Stop
	}
	return Admit
}

// Contains reports whether t is inside the window.
func (w Window) Contains(t time.Time) bool {
	return w.Evaluate(t) == Admit
}

// UTCBounds renders the window bounds as RFC3339 UTC timestamps for
// server-side publish-time filters.
func (w Window) UTCBounds() (after, before string) {
	return w.Start.UTC().Format(time.RFC3339), w.End.UTC().Format(time.RFC3339)
}
