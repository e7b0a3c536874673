package series

import "time"

// IsLastDayOfMonth reports whether t falls on the final day of its month.
func IsLastDayOfMonth(t time.Time) bool {
	return t.AddDate(0, 0, 1).Month() != t.Month()
}

// ClosedMonths is the number of fully elapsed months of ref's year: the
// current month counts only on its last day.
func ClosedMonths(ref time.Time) int {
	if IsLastDayOfMonth(ref) {
		return int(ref.Month())
	}
	return int(ref.Month()) - 1
}

// ClosedMonthsFor extends ClosedMonths to any year: past years are fully
// closed and future years have no closed month.
func ClosedMonthsFor(year int, ref time.Time) int {
	switch {
	case year < ref.Year():
		return 12
	case year > ref.Year():
		return 0
	default:
		return ClosedMonths(ref)
	}
}

// MonthEnd returns the last calendar day of month in year at midnight.
func MonthEnd(year, month int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, loc)
}

// DayFlow is the inflow and outflow booked on a single day.
type DayFlow struct {
	Date    time.Time `json:"date"`
	Inflow  float64   `json:"inflow"`
	Outflow float64   `json:"outflow"`
}

// Net returns inflow minus outflow.
func (d DayFlow) Net() float64 {
	return d.Inflow - d.Outflow
}

// ReindexDaily returns one entry per calendar day in [from, to]. Flows on the
// same day are summed, missing days are zero and days outside the range are
// dropped. An inverted range yields nil.
func ReindexDaily(from, to time.Time, flows []DayFlow) []DayFlow {
	start, end := dayOf(from), dayOf(to)
	if end.Before(start) {
		return nil
	}
	byDay := make(map[time.Time]*DayFlow, len(flows))
	for _, f := range flows {
		day := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, start.Location())
		if day.Before(start) || day.After(end) {
			continue
		}
		acc, ok := byDay[day]
		if !ok {
			acc = &DayFlow{Date: day}
			byDay[day] = acc
		}
		acc.Inflow += f.Inflow
		acc.Outflow += f.Outflow
	}

	var out []DayFlow
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if acc, ok := byDay[day]; ok {
			out = append(out, *acc)
			continue
		}
		out = append(out, DayFlow{Date: day})
	}
	return out
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
