package series

// Projection extends the closed months of a year to a full-year estimate
// using their monthly average.
type Projection struct {
	Closed  int     `json:"closed"`
	Sum     float64 `json:"sum"`
	Average float64 `json:"average"`
	Total   float64 `json:"total"`
	// Display keeps the real values of closed months and the average for
	// every open month.
	Display Monthly `json:"display"`
}

// Project computes the full-year trend from the first closed months.
func Project(values Monthly, closed int) Projection {
	closed = clampMonths(closed)
	p := Projection{Closed: closed, Sum: values.SumThrough(closed)}
	if closed > 0 {
		p.Average = p.Sum / float64(closed)
	}
	p.Total = p.Sum + p.Average*float64(12-closed)
	for i := range values {
		if i < closed {
			p.Display[i] = values[i]
			continue
		}
		p.Display[i] = p.Average
	}
	return p
}

// ProjectGrowth extends a cumulative series past its closed months by the
// average month-over-month growth observed over them. With no closed month
// the values are returned unchanged. A single closed month counts as growth
// from zero, so its value is added once per open month.
func ProjectGrowth(values Monthly, closed int) Monthly {
	closed = clampMonths(closed)
	if closed == 0 {
		return values
	}
	growth := values[0]
	if closed > 1 {
		growth = (values[closed-1] - values[0]) / float64(closed-1)
	}
	out := values
	last := values[closed-1]
	for i := closed; i < 12; i++ {
		last += growth
		out[i] = last
	}
	return out
}
