package svg

import (
	"fmt"
	"html/template"
)

// Bars renders the prior year (seriesA) next to the selected year (seriesB)
// for every label. Bars of seriesB flagged in opts.Projected are estimates
// and are drawn lighter with a dashed outline.
func Bars(width, height int, seriesA, seriesB []float64, labels []string, opts BarOpts) (template.HTML, error) {
	if err := checkBars(seriesA, seriesB, labels, opts.Projected); err != nil {
		return "", err
	}
	c, err := newCanvas(width, height, opts.Padding, len(labels), seriesA, seriesB)
	if err != nil {
		return "", err
	}
	c.colors(opts.AxisColor, opts.GridColor)

	prior := legendEntry{label: fallback(opts.SeriesALabel, "Ano anterior"), fill: fallback(opts.ColorA, "#94a3b8")}
	current := legendEntry{label: fallback(opts.SeriesBLabel, "Ano atual"), fill: fallback(opts.ColorB, "#2563eb")}
	estimate := legendEntry{
		label:  fallback(opts.ProjectedLabel, "Projeção"),
		fill:   fallback(opts.ProjectedColor, "#93c5fd"),
		stroke: current.fill,
	}

	c.header("bar", fallback(opts.Title, "Comparativo mensal"), fallback(opts.Description, "Comparação mês a mês com o ano anterior"))
	c.scale(opts.TickCount, opts.ValuePrefix)
	c.axes()

	w := c.slotWidth() * 0.35
	for i, label := range labels {
		mid := c.center(i)
		if len(seriesA) > 0 {
			c.column(mid-w, w, seriesA[i], prior.fill, "", prior.label+" "+label)
			if opts.ValueLabels {
				c.valueLabel(mid-w/2, seriesA[i], opts.ValuePrefix)
			}
		}
		if len(seriesB) > 0 {
			if i < len(opts.Projected) && opts.Projected[i] {
				attrs := fmt.Sprintf(` stroke="%s" stroke-dasharray="3,2" data-projected="true"`, estimate.stroke)
				c.column(mid, w, seriesB[i], estimate.fill, attrs, estimate.label+" "+label)
			} else {
				c.column(mid, w, seriesB[i], current.fill, "", current.label+" "+label)
			}
			if opts.ValueLabels {
				c.valueLabel(mid+w/2, seriesB[i], opts.ValuePrefix)
			}
		}
	}
	c.slotLabels(labels)

	var entries []legendEntry
	if len(seriesA) > 0 {
		entries = append(entries, prior)
	}
	if len(seriesB) > 0 {
		entries = append(entries, current)
		for _, p := range opts.Projected {
			if p {
				entries = append(entries, estimate)
				break
			}
		}
	}
	c.legend(entries...)
	return c.html(), nil
}

func checkBars(seriesA, seriesB []float64, labels []string, projected []bool) error {
	switch {
	case len(seriesA) == 0 && len(seriesB) == 0:
		return fmt.Errorf("svg: at least one series required")
	case len(labels) == 0:
		return fmt.Errorf("svg: labels required")
	case len(seriesA) > 0 && len(seriesA) != len(labels):
		return fmt.Errorf("svg: prior series has %d values for %d labels", len(seriesA), len(labels))
	case len(seriesB) > 0 && len(seriesB) != len(labels):
		return fmt.Errorf("svg: current series has %d values for %d labels", len(seriesB), len(labels))
	case len(projected) > 0 && len(projected) != len(labels):
		return fmt.Errorf("svg: projected flags must match labels")
	}
	return nil
}
