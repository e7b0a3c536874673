package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Line renders a running series as a line through the middle of every label
// slot. opts.Columns, when set, are drawn first as bars on the same scale.
func Line(width, height int, values []float64, labels []string, opts LineOpts) (template.HTML, error) {
	switch {
	case len(values) == 0:
		return "", fmt.Errorf("svg: series required")
	case len(values) != len(labels):
		return "", fmt.Errorf("svg: %d labels for %d values", len(labels), len(values))
	case len(opts.Columns) > 0 && len(opts.Columns) != len(values):
		return "", fmt.Errorf("svg: columns length must match series")
	}
	c, err := newCanvas(width, height, opts.Padding, len(labels), values, opts.Columns)
	if err != nil {
		return "", err
	}
	c.colors(opts.AxisColor, opts.GridColor)
	stroke := fallback(opts.StrokeColor, "#dc2626")

	c.header("line", fallback(opts.Title, "Evolução mensal"), fallback(opts.Description, "Valor acumulado por mês"))
	c.scale(opts.TickCount, "")
	c.axes()

	if len(opts.Columns) > 0 {
		fill := fallback(opts.ColumnColor, "#fca5a5")
		w := c.slotWidth() * 0.6
		for i, v := range opts.Columns {
			c.column(c.center(i)-w/2, w, v, fill, "", labels[i])
		}
	}

	var path strings.Builder
	for i, v := range values {
		cmd := " L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%.2f %.2f", cmd, c.center(i), c.y(v))
	}
	if opts.FillColor != "" {
		zero := c.y(0)
		c.printf(`<path d="%s L%.2f %.2f L%.2f %.2f Z" fill="%s" stroke="none" aria-hidden="true"></path>`,
			path.String(), c.center(len(values)-1), zero, c.center(0), zero, opts.FillColor)
	}
	c.printf(`<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"></path>`,
		path.String(), stroke)
	if opts.ShowDots {
		for i, v := range values {
			c.printf(`<circle cx="%.2f" cy="%.2f" r="3" fill="%s"></circle>`, c.center(i), c.y(v), stroke)
		}
	}
	c.slotLabels(labels)
	return c.html(), nil
}
