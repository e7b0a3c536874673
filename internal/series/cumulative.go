package series

import (
	"sort"
	"time"
)

// Interval is the lifetime of an entity: a client relationship, a contract or
// an installed equipment item. A nil End means still active.
type Interval struct {
	ID    string
	Start time.Time
	End   *time.Time
}

// StartedCumulative counts, for each month of year, the distinct IDs whose
// first interval started on or before the month end. IDs started before the
// year form the base set; the months then add newcomers in order, so the
// series never decreases.
func StartedCumulative(year int, intervals []Interval) [12]int {
	loc := locationOf(intervals)
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)

	seen := make(map[string]struct{}, len(intervals))
	var inYear []Interval
	for _, iv := range intervals {
		if iv.Start.Before(yearStart) {
			seen[iv.ID] = struct{}{}
			continue
		}
		inYear = append(inYear, iv)
	}
	sort.Slice(inYear, func(i, j int) bool { return inYear[i].Start.Before(inYear[j].Start) })

	var out [12]int
	next := 0
	for m := 1; m <= 12; m++ {
		end := endOfDay(MonthEnd(year, m, loc))
		for next < len(inYear) && !inYear[next].Start.After(end) {
			seen[inYear[next].ID] = struct{}{}
			next++
		}
		out[m-1] = len(seen)
	}
	return out
}

// ActiveCumulative counts, for each month of year, the distinct IDs with an
// interval that started on or before the month end and had not ended by it.
func ActiveCumulative(year int, intervals []Interval) [12]int {
	loc := locationOf(intervals)
	var out [12]int
	for m := 1; m <= 12; m++ {
		end := endOfDay(MonthEnd(year, m, loc))
		active := make(map[string]struct{})
		for _, iv := range intervals {
			if iv.Start.After(end) {
				continue
			}
			if iv.End != nil && !iv.End.After(MonthEnd(year, m, loc)) {
				continue
			}
			active[iv.ID] = struct{}{}
		}
		out[m-1] = len(active)
	}
	return out
}

// Floats converts a count series for charting.
func Floats(counts [12]int) Monthly {
	var out Monthly
	for i, c := range counts {
		out[i] = float64(c)
	}
	return out
}

func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func locationOf(intervals []Interval) *time.Location {
	if len(intervals) > 0 {
		return intervals[0].Start.Location()
	}
	return time.UTC
}
