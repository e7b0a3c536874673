package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/plugtech/findash/internal/kpi"
)

const (
	defaultAxisColor = "#475569"
	defaultGridColor = "#cbd5f5"
	labelOffset      = 14
)

// canvas is the plot area shared by the report charts. Every label owns one
// slot of equal width and the value range always contains zero, so bars and
// columns grow from a visible baseline.
type canvas struct {
	b      strings.Builder
	width  int
	height int
	left   float64
	top    float64
	plotW  float64
	plotH  float64
	lo, hi float64
	slots  int
	axis   string
	grid   string
}

func newCanvas(width, height int, padding float64, slots int, values ...[]float64) (*canvas, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if padding <= 0 {
		padding = DefaultPadding
	}
	c := &canvas{
		width:  width,
		height: height,
		left:   padding,
		top:    padding,
		plotW:  float64(width) - 2*padding,
		plotH:  float64(height) - 2*padding,
		slots:  slots,
		axis:   defaultAxisColor,
		grid:   defaultGridColor,
	}
	if c.plotW <= 0 || c.plotH <= 0 {
		return nil, fmt.Errorf("svg: viewport too small")
	}
	for _, vs := range values {
		for _, v := range vs {
			c.lo = math.Min(c.lo, v)
			c.hi = math.Max(c.hi, v)
		}
	}
	if c.hi-c.lo < 1e-9 {
		c.hi = c.lo + 1
	}
	return c, nil
}

func (c *canvas) colors(axis, grid string) {
	c.axis = fallback(axis, c.axis)
	c.grid = fallback(grid, c.grid)
}

func (c *canvas) bottom() float64 { return c.top + c.plotH }

// y maps a value onto the vertical pixel position.
func (c *canvas) y(v float64) float64 {
	return c.bottom() - (v-c.lo)*c.plotH/(c.hi-c.lo)
}

func (c *canvas) slotWidth() float64 { return c.plotW / float64(c.slots) }

func (c *canvas) center(i int) float64 {
	return c.left + (float64(i)+0.5)*c.slotWidth()
}

func (c *canvas) printf(format string, args ...any) {
	fmt.Fprintf(&c.b, format, args...)
}

func (c *canvas) header(kind, title, desc string) {
	titleID := makeID(title, kind+"-title")
	descID := makeID(title, kind+"-desc")
	c.printf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`,
		c.width, c.height, titleID, descID)
	c.printf(`<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(title))
	c.printf(`<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(desc))
}

// scale draws the horizontal grid with abbreviated tick values.
func (c *canvas) scale(ticks int, prefix string) {
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	for i := 0; i <= ticks; i++ {
		v := c.lo + (c.hi-c.lo)*float64(i)/float64(ticks)
		y := c.y(v)
		c.printf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`,
			c.left, y, c.left+c.plotW, y, c.grid)
		c.printf(`<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`,
			c.left-6, y+4, c.axis, template.HTMLEscapeString(prefix+kpi.Abbreviate(v)))
	}
}

// axes draws the value axis and the zero baseline.
func (c *canvas) axes() {
	zero := c.y(0)
	c.printf(`<g stroke="%s" aria-label="Eixos">`, c.axis)
	c.printf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, c.left, c.top, c.left, c.bottom())
	c.printf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, c.left, zero, c.left+c.plotW, zero)
	c.b.WriteString("</g>")
}

// column draws a bar of width w starting at x from the baseline to v. attrs
// are extra SVG attributes written verbatim.
func (c *canvas) column(x, w, v float64, fill, attrs, label string) {
	top, base := c.y(v), c.y(0)
	if top > base {
		top, base = base, top
	}
	c.printf(`<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"%s aria-label="%s"></rect>`,
		x, top, w, base-top, fill, attrs, template.HTMLEscapeString(label))
}

// valueLabel prints the abbreviated value above a positive bar.
func (c *canvas) valueLabel(x, v float64, prefix string) {
	if v <= 0 {
		return
	}
	c.printf(`<text x="%.2f" y="%.2f" fill="%s" font-size="8" text-anchor="middle">%s</text>`,
		x, c.y(v)-3, c.axis, template.HTMLEscapeString(prefix+kpi.Abbreviate(v)))
}

// slotLabels writes one label under every slot.
func (c *canvas) slotLabels(labels []string) {
	for i, label := range labels {
		c.printf(`<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
			c.center(i), c.bottom()+labelOffset, c.axis, template.HTMLEscapeString(label))
	}
}

type legendEntry struct {
	label  string
	fill   string
	stroke string
}

// legend lays the entries out left to right above the plot.
func (c *canvas) legend(entries ...legendEntry) {
	y := math.Max(c.top-12, 12)
	x := c.left
	for _, e := range entries {
		outline := ""
		if e.stroke != "" {
			outline = fmt.Sprintf(` stroke="%s" stroke-dasharray="3,2"`, e.stroke)
		}
		c.printf(`<rect x="%.2f" y="%.2f" width="10" height="10" fill="%s"%s></rect>`, x, y-8, e.fill, outline)
		c.printf(`<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="start">%s</text>`,
			x+14, y, c.axis, template.HTMLEscapeString(e.label))
		x += 90
	}
}

func (c *canvas) html() template.HTML {
	c.b.WriteString("</svg>")
	return template.HTML(c.b.String())
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}
