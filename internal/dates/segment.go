package dates

import (
	"fmt"
	"time"
)

// Layout is the wire format for dates in queries and output rows.
const Layout = "2006-01-02"

// Segment is a contiguous sub-range of a requested date interval. Both
// bounds are inclusive.
type Segment struct {
	From time.Time
	To   time.Time
}

// String formats the segment as "YYYY-MM-DD to YYYY-MM-DD".
func (s Segment) String() string {
	return fmt.Sprintf("%s to %s", s.From.Format(Layout), s.To.Format(Layout))
}

// Days returns the inclusive length of the segment in days.
func (s Segment) Days() int {
	return int(s.To.Sub(s.From).Hours()/24) + 1
}

// Split divides [from, to] into ordered, contiguous, non-overlapping
// segments of at most maxDays days each. The first segment starts at from,
// the last ends at to, and the union of all segments is exactly the
// requested range.
func Split(from, to time.Time, maxDays int) ([]Segment, error) {
	if maxDays <= 0 {
		return nil, fmt.Errorf("max days per request must be positive, got %d", maxDays)
	}

	from = Midnight(from)
	to = Midnight(to)

	if from.After(to) {
		return nil, fmt.Errorf("start date %s is after end date %s",
			from.Format(Layout), to.Format(Layout))
	}

	var segments []Segment
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 0, maxDays) {
		end := cur.AddDate(0, 0, maxDays-1)
		if end.After(to) {
			end = to
		}
		segments = append(segments, Segment{From: cur, To: end})
	}

	return segments, nil
}

// Midnight truncates t to the beginning of its day in UTC.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
