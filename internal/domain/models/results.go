package models

import (
	"fmt"
	"io"
	"maps"
	"slices"
)

// Category names a group of classified datasets.
type Category string

const (
	CategoryTradeOrder   Category = "trade_order"
	CategoryTimeline     Category = "timeline"
	CategorySparseMarket Category = "sparse_market"
	CategoryBar          Category = "bar"
	CategoryDist         Category = "dist"
	CategoryTable        Category = "table"
	CategoryMarket       Category = "market"
	CategoryCandlestick  Category = "candlestick"
)

// FrameCategories lists the categories holding frames, in classification order.
var FrameCategories = []Category{
	CategoryTradeOrder,
	CategoryTimeline,
	CategorySparseMarket,
	CategoryBar,
	CategoryDist,
	CategoryTable,
	CategoryMarket,
}

// RenderableCategories lists the categories the dispatcher turns into artifacts.
var RenderableCategories = []Category{
	CategoryTimeline,
	CategorySparseMarket,
	CategoryBar,
	CategoryDist,
	CategoryTable,
}

// ParseCategory maps a string onto a known category.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	if c == CategoryCandlestick || slices.Contains(FrameCategories, c) {
		return c, true
	}
	return "", false
}

// ClassifiedResult is the typed view of a RawResultSet. It is built once and never mutated;
// accessors hand out copies of the underlying maps.
type ClassifiedResult struct {
	tickers      []string
	tradeOrders  []string
	frames       map[Category]map[string]*Frame
	candlesticks map[string]*Candlestick
	dropped      []string
}

// NewClassifiedResult freezes the collections produced by a classification pass.
func NewClassifiedResult(req RequestContext, frames map[Category]map[string]*Frame, candlesticks map[string]*Candlestick, dropped []string) *ClassifiedResult {
	r := &ClassifiedResult{
		tickers:      slices.Clone(req.Tickers),
		tradeOrders:  slices.Clone(req.TradeOrders),
		frames:       make(map[Category]map[string]*Frame, len(FrameCategories)),
		candlesticks: maps.Clone(candlesticks),
		dropped:      slices.Clone(dropped),
	}
	for _, c := range FrameCategories {
		m := maps.Clone(frames[c])
		if m == nil {
			m = map[string]*Frame{}
		}
		r.frames[c] = m
	}
	if r.candlesticks == nil {
		r.candlesticks = map[string]*Candlestick{}
	}
	slices.Sort(r.dropped)
	return r
}

func (r *ClassifiedResult) Tickers() []string     { return slices.Clone(r.tickers) }
func (r *ClassifiedResult) TradeOrders() []string { return slices.Clone(r.tradeOrders) }

// Dropped lists the raw keys that matched no naming convention, sorted.
func (r *ClassifiedResult) Dropped() []string { return slices.Clone(r.dropped) }

func (r *ClassifiedResult) TradeOrder() map[string]*Frame   { return r.Frames(CategoryTradeOrder) }
func (r *ClassifiedResult) Timeline() map[string]*Frame     { return r.Frames(CategoryTimeline) }
func (r *ClassifiedResult) SparseMarket() map[string]*Frame { return r.Frames(CategorySparseMarket) }
func (r *ClassifiedResult) Bar() map[string]*Frame          { return r.Frames(CategoryBar) }
func (r *ClassifiedResult) Dist() map[string]*Frame         { return r.Frames(CategoryDist) }
func (r *ClassifiedResult) Table() map[string]*Frame        { return r.Frames(CategoryTable) }
func (r *ClassifiedResult) Market() map[string]*Frame       { return r.Frames(CategoryMarket) }

// Candlesticks returns the pre-rendered candlestick figures keyed by ticker.
func (r *ClassifiedResult) Candlesticks() map[string]*Candlestick { return maps.Clone(r.candlesticks) }

// Candlestick looks up the figure for one ticker.
func (r *ClassifiedResult) Candlestick(ticker string) (*Candlestick, bool) {
	c, ok := r.candlesticks[ticker]
	return c, ok
}

// Frames returns a copy of one frame collection.
func (r *ClassifiedResult) Frames(c Category) map[string]*Frame {
	m := maps.Clone(r.frames[c])
	if m == nil {
		m = map[string]*Frame{}
	}
	return m
}

// Keys returns the sorted keys of a collection, including the candlestick one.
func (r *ClassifiedResult) Keys(c Category) []string {
	if c == CategoryCandlestick {
		return slices.Sorted(maps.Keys(r.candlesticks))
	}
	return slices.Sorted(maps.Keys(r.frames[c]))
}

// Len returns the number of entries across all collections.
func (r *ClassifiedResult) Len() int {
	n := len(r.candlesticks)
	for _, m := range r.frames {
		n += len(m)
	}
	return n
}

// Artifact is an opaque chart or table produced by a renderer.
type Artifact interface {
	Render(w io.Writer) error
}

// RenderError records the failure of a single entry; the rest of the render still completes.
type RenderError struct {
	Category Category
	Key      string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s/%s: %v", e.Category, e.Key, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// RenderedArtifacts mirrors the renderable collections of a ClassifiedResult.
type RenderedArtifacts struct {
	Timeline     map[string]Artifact
	SparseMarket map[string]Artifact
	Bar          map[string]Artifact
	Dist         map[string]Artifact
	Table        map[string]Artifact
	Failures     []*RenderError
}

// NewRenderedArtifacts returns an artifact set with every collection initialised.
func NewRenderedArtifacts() *RenderedArtifacts {
	return &RenderedArtifacts{
		Timeline:     map[string]Artifact{},
		SparseMarket: map[string]Artifact{},
		Bar:          map[string]Artifact{},
		Dist:         map[string]Artifact{},
		Table:        map[string]Artifact{},
	}
}

// Collection returns the artifact map for a renderable category, nil otherwise.
func (a *RenderedArtifacts) Collection(c Category) map[string]Artifact {
	switch c {
	case CategoryTimeline:
		return a.Timeline
	case CategorySparseMarket:
		return a.SparseMarket
	case CategoryBar:
		return a.Bar
	case CategoryDist:
		return a.Dist
	case CategoryTable:
		return a.Table
	}
	return nil
}

// Len counts the rendered artifacts.
func (a *RenderedArtifacts) Len() int {
	return len(a.Timeline) + len(a.SparseMarket) + len(a.Bar) + len(a.Dist) + len(a.Table)
}
