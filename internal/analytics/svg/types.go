package svg

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	StrokeColor string
	FillColor   string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
	// Columns are drawn as bars behind the line on the same scale, one per
	// label. Running totals use it to show the monthly values they add up.
	Columns     []float64
	ColumnColor string
}

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	Title        string
	Description  string
	SeriesALabel string
	SeriesBLabel string
	ColorA       string
	ColorB       string
	AxisColor    string
	GridColor    string
	Padding      float64
	TickCount    int
	// Projected marks the bars of series B that are estimates. They are drawn
	// with ProjectedColor and a dashed outline.
	Projected      []bool
	ProjectedColor string
	ProjectedLabel string
	// ValueLabels prints the abbreviated value above every positive bar,
	// prefixed with ValuePrefix.
	ValueLabels bool
	ValuePrefix string
}

// Defaults for the report charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 24.0
	DefaultTicks   = 6
)
