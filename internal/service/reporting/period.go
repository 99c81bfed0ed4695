package reporting

import (
	"time"

	"github.com/mamadbah2/kitchenledger/internal/domain/apperr"
)

const dateLayout = "2006-01-02"

// CompareMode selects the comparison window of a period report.
type CompareMode string

const (
	CompareNone           CompareMode = ""
	ComparePreviousPeriod CompareMode = "previous_period"
	ComparePreviousYear   CompareMode = "previous_year"
)

// ParseCompareMode validates a comparison mode coming from a caller.
func ParseCompareMode(s string) (CompareMode, error) {
	switch CompareMode(s) {
	case CompareNone, ComparePreviousPeriod, ComparePreviousYear:
		return CompareMode(s), nil
	}
	return CompareNone, apperr.Validation("compare", "must be previous_period or previous_year")
}

// Range is an inclusive range of calendar dates.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewRange normalizes both bounds to calendar dates and checks start <= end.
func NewRange(start, end time.Time) (Range, error) {
	r := Range{Start: dateOnly(start), End: dateOnly(end)}
	if r.End.Before(r.Start) {
		return Range{}, apperr.Validation("range", "end must not be before start")
	}
	return r, nil
}

// ParseRange builds a Range from two YYYY-MM-DD strings.
func ParseRange(start, end string) (Range, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return Range{}, apperr.Validation("start", "expected YYYY-MM-DD")
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return Range{}, apperr.Validation("end", "expected YYYY-MM-DD")
	}
	return NewRange(s, e)
}

// Contains reports whether t falls on a date within the range.
func (r Range) Contains(t time.Time) bool {
	d := dateOnly(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Overlaps reports whether [start, end] shares at least one date with the range.
func (r Range) Overlaps(start, end time.Time) bool {
	return !dateOnly(end).Before(r.Start) && !dateOnly(start).After(r.End)
}

// Days is the number of calendar days in the range.
func (r Range) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Union returns the smallest range covering both.
func (r Range) Union(o Range) Range {
	out := r
	if o.Start.Before(out.Start) {
		out.Start = o.Start
	}
	if o.End.After(out.End) {
		out.End = o.End
	}
	return out
}

func (r Range) String() string {
	return r.Start.Format(dateLayout) + ".." + r.End.Format(dateLayout)
}

// ResolveComparison returns the window the range is compared against.
//
// previous_period is the immediately preceding window of the same length. previous_year shifts
// both bounds back one year, clamping Feb 29 to Feb 28.
func ResolveComparison(r Range, mode CompareMode) (Range, error) {
	switch mode {
	case ComparePreviousPeriod:
		end := r.Start.AddDate(0, 0, -1)
		start := end.AddDate(0, 0, -(r.Days() - 1))
		return Range{Start: start, End: end}, nil
	case ComparePreviousYear:
		return Range{Start: shiftYear(r.Start, -1), End: shiftYear(r.End, -1)}, nil
	default:
		return Range{}, apperr.Validation("compare", "unsupported comparison mode "+string(mode))
	}
}

func shiftYear(t time.Time, years int) time.Time {
	y := t.Year() + years
	d := t.Day()
	if t.Month() == time.February && d == 29 && !isLeap(y) {
		d = 28
	}
	return time.Date(y, t.Month(), d, 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func mondayStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	daysSinceMonday := (weekday + 6) % 7
	return dateOnly(t.AddDate(0, 0, -daysSinceMonday))
}
