// Package series reindexes sparse query results onto dense monthly and daily
// axes and derives running totals, projections and cumulative counts.
package series

// MonthLabels are the short month names used on chart axes.
var MonthLabels = [12]string{"JAN", "FEV", "MAR", "ABR", "MAI", "JUN", "JUL", "AGO", "SET", "OUT", "NOV", "DEZ"}

// MonthLabel returns the short name of month m, or "" outside 1..12.
func MonthLabel(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return MonthLabels[m-1]
}

// Monthly holds one value per calendar month, January first.
type Monthly [12]float64

// Point is a sparse (month, value) row.
type Point struct {
	Month int
	Value float64
}

// ReindexMonthly places points on the twelve-month axis. Missing months are
// zero, months outside 1..12 are ignored and repeated months are summed.
func ReindexMonthly(points []Point) Monthly {
	var out Monthly
	for _, p := range points {
		if p.Month < 1 || p.Month > 12 {
			continue
		}
		out[p.Month-1] += p.Value
	}
	return out
}

// At returns the value of month m (1-based), zero outside 1..12.
func (m Monthly) At(month int) float64 {
	if month < 1 || month > 12 {
		return 0
	}
	return m[month-1]
}

// Sum totals all twelve months.
func (m Monthly) Sum() float64 {
	return m.SumThrough(12)
}

// SumThrough totals months 1..n. n is clamped to 0..12.
func (m Monthly) SumThrough(n int) float64 {
	n = clampMonths(n)
	total := 0.0
	for i := 0; i < n; i++ {
		total += m[i]
	}
	return total
}

// Cumulative returns the running total.
func (m Monthly) Cumulative() Monthly {
	var out Monthly
	running := 0.0
	for i, v := range m {
		running += v
		out[i] = running
	}
	return out
}

// Values returns the months as a slice.
func (m Monthly) Values() []float64 {
	out := make([]float64, 12)
	copy(out, m[:])
	return out
}

// PairPoint is a month with the current and prior year values.
type PairPoint struct {
	Month    int
	Current  float64
	Previous float64
}

// Pair holds the current and prior year on the same monthly axis.
type Pair struct {
	Current  Monthly `json:"current"`
	Previous Monthly `json:"previous"`
}

// ReindexPair reindexes current and prior year columns together.
func ReindexPair(points []PairPoint) Pair {
	var p Pair
	for _, pt := range points {
		if pt.Month < 1 || pt.Month > 12 {
			continue
		}
		p.Current[pt.Month-1] += pt.Current
		p.Previous[pt.Month-1] += pt.Previous
	}
	return p
}

func clampMonths(n int) int {
	if n < 0 {
		return 0
	}
	if n > 12 {
		return 12
	}
	return n
}
