package models

import (
	"errors"
	"fmt"
	"time"

	xutil "TCAVis/pkg/util"
)

// Wire format shared by the HTTP ingest endpoint and the Kafka results topic.

// ErrInvalidPayload marks datasets that cannot be decoded into frames or candlesticks.
var ErrInvalidPayload = errors.New("invalid dataset payload")

type ResultSetRequest struct {
	ID          string                    `json:"id" validate:"omitempty,max=128"`
	Tickers     []string                  `json:"tickers" validate:"required,min=1,dive,required"`
	TradeOrders []string                  `json:"trade_orders" validate:"dive,required"`
	Preamble    string                    `json:"preamble"`
	Datasets    map[string]DatasetPayload `json:"datasets" validate:"required"`
}

type DatasetPayload struct {
	Kind    DatasetKind     `json:"kind" validate:"required,oneof=frame candlestick"`
	Index   []string        `json:"index,omitempty"`
	Labels  []string        `json:"labels,omitempty"`
	Columns []ColumnPayload `json:"columns,omitempty"`

	Time  []string  `json:"time,omitempty"`
	Open  []float64 `json:"open,omitempty"`
	High  []float64 `json:"high,omitempty"`
	Low   []float64 `json:"low,omitempty"`
	Close []float64 `json:"close,omitempty"`
}

type ColumnPayload struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values,omitempty"`
	Text   []string  `json:"text,omitempty"`
}

// RequestContext extracts the request descriptor.
func (r *ResultSetRequest) RequestContext() RequestContext {
	return RequestContext{Tickers: r.Tickers, TradeOrders: r.TradeOrders}
}

// ToRaw decodes every dataset payload into its domain form.
func (r *ResultSetRequest) ToRaw() (RawResultSet, error) {
	raw := make(RawResultSet, len(r.Datasets))
	for key, p := range r.Datasets {
		ds, err := p.Decode()
		if err != nil {
			return nil, fmt.Errorf("%w: dataset %q: %v", ErrInvalidPayload, key, err)
		}
		raw[key] = ds
	}
	return raw, nil
}

// Decode converts one payload into a Frame or a Candlestick.
func (p DatasetPayload) Decode() (Dataset, error) {
	switch p.Kind {
	case KindFrame:
		index, err := parseTimes(p.Index)
		if err != nil {
			return nil, fmt.Errorf("index: %w", err)
		}
		f := &Frame{Index: index, Labels: p.Labels, Columns: make([]Column, 0, len(p.Columns))}
		for _, c := range p.Columns {
			if c.Text != nil && c.Values != nil {
				return nil, fmt.Errorf("column %q carries both values and text", c.Name)
			}
			col := Column{Name: c.Name, Values: c.Values, Text: c.Text}
			if col.Values == nil && col.Text == nil {
				col.Values = []float64{}
			}
			f.Columns = append(f.Columns, col)
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		return f, nil
	case KindCandlestick:
		ts, err := parseTimes(p.Time)
		if err != nil {
			return nil, fmt.Errorf("time: %w", err)
		}
		c := &Candlestick{Time: ts, Open: p.Open, High: p.High, Low: p.Low, Close: p.Close}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown dataset kind %q", p.Kind)
	}
}

func parseTimes(in []string) ([]time.Time, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]time.Time, len(in))
	for i, s := range in {
		t, ok := xutil.ParseTime(s)
		if !ok {
			return nil, fmt.Errorf("row %d: invalid timestamp %q", i, s)
		}
		out[i] = t
	}
	return out, nil
}

// RenderedManifest summarises a rendered result set for API clients and downstream report builders.
type RenderedManifest struct {
	ID         string                `json:"id"`
	Tickers    []string              `json:"tickers"`
	Preamble   string                `json:"preamble"`
	Classified map[Category][]string `json:"classified"`
	Artifacts  map[Category][]string `json:"artifacts"`
	Failures   []ManifestFailure     `json:"failures,omitempty"`
	Dropped    []string              `json:"dropped,omitempty"`
	RenderedAt time.Time             `json:"rendered_at"`
}

type ManifestFailure struct {
	Category Category `json:"category"`
	Key      string   `json:"key"`
	Error    string   `json:"error"`
}

// RenderRequest parameters of a re-render call.
type RenderRequest struct {
	ID    string `param:"id" validate:"required"`
	Force bool   `query:"force"`
}

// ArtifactRequest addresses one rendered artifact.
type ArtifactRequest struct {
	ID       string `param:"id" validate:"required"`
	Category string `param:"category" validate:"required,oneof=timeline sparse_market bar dist table"`
	Key      string `param:"key" validate:"required"`
}
