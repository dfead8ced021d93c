package render

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"TCAVis/internal/domain/models"
	domsvc "TCAVis/internal/domain/service"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const candlestickLine = "candlestick"

// PlotMarketTradeTimeline overlays sparse market lines and executed trades on a candlestick figure.
// Lines are drawn in the given order; "candlestick" selects the OHLC series itself.
func (r *EChartsRenderer) PlotMarketTradeTimeline(ctx context.Context, title string, frame *models.Frame, candlestick *models.Candlestick, lines []string, size domsvc.Size) (models.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if candlestick == nil {
		return nil, fmt.Errorf("market %q: candlestick figure is required", title)
	}
	if len(frame.Index) == 0 && frame.Len() > 0 {
		return nil, fmt.Errorf("market %q: sparse market frame has no time index", title)
	}

	axis := mergeTimes(candlestick.Time, frame.Index)
	pos := make(map[int64]int, len(axis))
	x := make([]string, len(axis))
	for i, t := range axis {
		pos[t.UnixNano()] = i
		x[i] = t.UTC().Format(timeLayout)
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		r.initOpts(title, size),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: true}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100, XAxisIndex: []int{0}}),
	)
	kline.SetXAxis(x)

	if slices.Contains(lines, candlestickLine) {
		candles := make([]opts.KlineData, len(axis))
		for i := range candles {
			candles[i] = opts.KlineData{Value: []interface{}{"-", "-", "-", "-"}}
		}
		for i, t := range candlestick.Time {
			candles[pos[t.UnixNano()]] = opts.KlineData{Value: []float64{
				candlestick.Open[i], candlestick.Close[i], candlestick.Low[i], candlestick.High[i],
			}}
		}
		kline.AddSeries(cmp.Or(candlestick.Ticker, candlestickLine), candles)
	}

	overlay := charts.NewLine()
	overlay.SetXAxis(x)
	for _, name := range lines {
		if name == candlestickLine {
			continue
		}
		col, ok := frame.Column(name)
		if !ok || !col.IsNumeric() {
			continue
		}
		overlay.AddSeries(name, alignLine(col.Values, frame.Index, pos, len(axis)),
			charts.WithLineStyleOpts(opts.LineStyle{Color: r.lineStyles[name], Width: 1.5}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: r.lineStyles[name]}),
		)
	}
	kline.Overlap(overlay)

	if buys, sells, ok := r.tradeMarkers(frame, pos, len(axis)); ok {
		scatter := charts.NewScatter()
		scatter.SetXAxis(x).
			AddSeries("buy trades", buys, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#3BA272"})).
			AddSeries("sell trades", sells, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#EE6666"}))
		kline.Overlap(scatter)
	}
	return kline, nil
}

// tradeMarkers splits executed prices into buy and sell triangles on the shared axis.
func (r *EChartsRenderer) tradeMarkers(frame *models.Frame, pos map[int64]int, n int) ([]opts.ScatterData, []opts.ScatterData, bool) {
	price, ok := frame.Column(r.priceColumn)
	if !ok || !price.IsNumeric() {
		return nil, nil, false
	}
	side, hasSide := frame.Column(r.sideColumn)

	buys := emptyScatter(n)
	sells := emptyScatter(n)
	for i, t := range frame.Index {
		v := price.Values[i]
		if chartValue(v) == "-" {
			continue
		}
		p := pos[t.UnixNano()]
		if hasSide && isSell(side, i) {
			sells[p] = opts.ScatterData{Value: v, Symbol: "triangle", SymbolSize: 14, SymbolRotate: 180, Name: "sell"}
			continue
		}
		buys[p] = opts.ScatterData{Value: v, Symbol: "triangle", SymbolSize: 14, Name: "buy"}
	}
	return buys, sells, true
}

func isSell(side models.Column, i int) bool {
	if side.IsNumeric() {
		return side.Values[i] < 0
	}
	return strings.EqualFold(side.Text[i], "sell") || side.Text[i] == "-1"
}

func emptyScatter(n int) []opts.ScatterData {
	out := make([]opts.ScatterData, n)
	for i := range out {
		out[i] = opts.ScatterData{Value: "-", SymbolSize: 0}
	}
	return out
}

func alignLine(values []float64, index []time.Time, pos map[int64]int, n int) []opts.LineData {
	out := make([]opts.LineData, n)
	for i := range out {
		out[i] = opts.LineData{Value: "-"}
	}
	for i, t := range index {
		out[pos[t.UnixNano()]] = opts.LineData{Value: chartValue(values[i])}
	}
	return out
}

// mergeTimes returns the sorted union of both time axes.
func mergeTimes(a, b []time.Time) []time.Time {
	seen := make(map[int64]time.Time, len(a)+len(b))
	for _, t := range a {
		seen[t.UnixNano()] = t
	}
	for _, t := range b {
		seen[t.UnixNano()] = t
	}
	out := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	slices.SortFunc(out, func(x, y time.Time) int { return x.Compare(y) })
	return out
}
