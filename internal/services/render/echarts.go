package render

import (
	"context"
	"fmt"
	"math"

	"TCAVis/internal/domain/models"
	domsvc "TCAVis/internal/domain/service"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const timeLayout = "2006-01-02 15:04:05"

// DefaultLineStyles maps the overlay lines of market/trade charts onto their colours.
var DefaultLineStyles = map[string]string{
	"mid":     "#5470C6",
	"arrival": "#91CC75",
	"twap":    "#9A60B4",
	"vwap":    "#FAC858",
}

// Option configures EChartsRenderer.
type Option func(*EChartsRenderer)

// WithTheme sets the ECharts theme, e.g. types.ThemeInfographic.
func WithTheme(theme string) Option {
	return func(r *EChartsRenderer) {
		if theme != "" {
			r.theme = theme
		}
	}
}

// WithLineStyles sets the colours of named overlay lines.
func WithLineStyles(styles map[string]string) Option {
	return func(r *EChartsRenderer) {
		if len(styles) > 0 {
			r.lineStyles = styles
		}
	}
}

// WithTradePriceColumn sets the column holding executed prices in sparse market frames.
func WithTradePriceColumn(name string) Option {
	return func(r *EChartsRenderer) {
		if name != "" {
			r.priceColumn = name
		}
	}
}

// EChartsRenderer implements service.ChartRenderer with go-echarts HTML charts and
// excelize workbooks for tables.
type EChartsRenderer struct {
	theme       string
	lineStyles  map[string]string
	priceColumn string
	sideColumn  string
}

func NewEChartsRenderer(options ...Option) *EChartsRenderer {
	r := &EChartsRenderer{
		theme:       types.ThemeWesteros,
		lineStyles:  DefaultLineStyles,
		priceColumn: "executed_price",
		sideColumn:  "side",
	}
	for _, o := range options {
		o(r)
	}
	return r
}

var _ domsvc.ChartRenderer = (*EChartsRenderer)(nil)

func (r *EChartsRenderer) initOpts(title string, size domsvc.Size) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: title,
		Width:     fmt.Sprintf("%dpx", size.Width),
		Height:    fmt.Sprintf("%dpx", size.Height),
		Theme:     r.theme,
	})
}

// PlotTimeline draws one line per numeric column against the frame's index.
func (r *EChartsRenderer) PlotTimeline(ctx context.Context, frame *models.Frame, title string, size domsvc.Size) (models.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cols := frame.NumericColumns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("timeline %q: no numeric columns", title)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		r.initOpts(title, size),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: true}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100, XAxisIndex: []int{0}}),
	)
	line.SetXAxis(frame.RowLabels(timeLayout))
	for _, c := range cols {
		line.AddSeries(c.Name, lineData(c.Values))
	}
	return line, nil
}

// PlotBar draws grouped bars, one series per numeric column.
func (r *EChartsRenderer) PlotBar(ctx context.Context, frame *models.Frame, title string, size domsvc.Size) (models.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cols := frame.NumericColumns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("bar %q: no numeric columns", title)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		r.initOpts(title, size),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
	)
	bar.SetXAxis(frame.RowLabels(timeLayout))
	for _, c := range cols {
		data := make([]opts.BarData, len(c.Values))
		for i, v := range c.Values {
			data[i] = opts.BarData{Value: chartValue(v)}
		}
		bar.AddSeries(c.Name, data)
	}
	return bar, nil
}

// PlotDist draws density curves: the frame's rows are the metric's bins and every numeric
// column is the density of one split group.
func (r *EChartsRenderer) PlotDist(ctx context.Context, frame *models.Frame, o domsvc.DistOptions, size domsvc.Size) (models.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cols := frame.NumericColumns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("dist %q: no numeric columns", o.Metric)
	}

	title := o.Title
	if title == "" {
		title = o.Metric + " distribution"
	}
	subtitle := ""
	if o.SplitBy != "" {
		subtitle = "split by " + o.SplitBy
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		r.initOpts(title, size),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: o.Metric}),
		charts.WithYAxisOpts(opts.YAxis{Name: "density"}),
	)
	line.SetXAxis(frame.RowLabels(timeLayout))
	for _, c := range cols {
		line.AddSeries(c.Name, lineData(c.Values))
	}
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{Smooth: true}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: 0.2}),
	)
	return line, nil
}

func lineData(values []float64) []opts.LineData {
	out := make([]opts.LineData, len(values))
	for i, v := range values {
		out[i] = opts.LineData{Value: chartValue(v)}
	}
	return out
}

// chartValue maps NaN and infinities onto the ECharts gap marker; JSON cannot encode them.
func chartValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return v
}
