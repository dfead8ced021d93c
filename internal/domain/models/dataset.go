package models

import (
	"fmt"
	"time"
)

// DatasetKind tells frames and pre-rendered figures apart on the wire.
type DatasetKind string

const (
	KindFrame       DatasetKind = "frame"
	KindCandlestick DatasetKind = "candlestick"
)

// Dataset is a single value emitted by the TCA engine under a result key.
type Dataset interface {
	Kind() DatasetKind
}

// RawResultSet is the flat output of a TCA computation, keyed by convention-encoded names
// such as "timeline_trade_df_slippage_by_all" or "EURUSD_df".
type RawResultSet map[string]Dataset

// Column is one named column of a Frame. Numeric columns fill Values, categorical ones Text.
type Column struct {
	Name   string
	Values []float64
	Text   []string
}

// Len returns the number of rows held by the column.
func (c Column) Len() int {
	if c.Text != nil {
		return len(c.Text)
	}
	return len(c.Values)
}

// IsNumeric reports whether the column carries float values.
func (c Column) IsNumeric() bool { return c.Text == nil }

// Frame is a small tabular dataset: rows are addressed by a time index, by labels, or by position.
type Frame struct {
	Index   []time.Time
	Labels  []string
	Columns []Column
}

func (*Frame) Kind() DatasetKind { return KindFrame }

// Len returns the row count.
func (f *Frame) Len() int {
	switch {
	case len(f.Index) > 0:
		return len(f.Index)
	case len(f.Labels) > 0:
		return len(f.Labels)
	case len(f.Columns) > 0:
		return f.Columns[0].Len()
	}
	return 0
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (Column, bool) {
	for _, c := range f.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// NumericColumns returns the columns carrying float values, in frame order.
func (f *Frame) NumericColumns() []Column {
	out := make([]Column, 0, len(f.Columns))
	for _, c := range f.Columns {
		if c.IsNumeric() {
			out = append(out, c)
		}
	}
	return out
}

// RowLabels returns one printable label per row: the formatted index, the labels, or the position.
func (f *Frame) RowLabels(layout string) []string {
	n := f.Len()
	out := make([]string, n)
	for i := 0; i < n; i++ {
		switch {
		case len(f.Index) > 0:
			out[i] = f.Index[i].UTC().Format(layout)
		case len(f.Labels) > 0:
			out[i] = f.Labels[i]
		default:
			out[i] = fmt.Sprintf("%d", i)
		}
	}
	return out
}

// Validate checks that index, labels and columns agree on the row count.
func (f *Frame) Validate() error {
	n := f.Len()
	if len(f.Index) > 0 && len(f.Labels) > 0 && len(f.Labels) != len(f.Index) {
		return fmt.Errorf("labels length %d does not match index length %d", len(f.Labels), len(f.Index))
	}
	seen := make(map[string]struct{}, len(f.Columns))
	for _, c := range f.Columns {
		if c.Name == "" {
			return fmt.Errorf("column name is required")
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Len() != n {
			return fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), n)
		}
	}
	return nil
}

// Candlestick is a pre-rendered OHLC figure for one ticker.
type Candlestick struct {
	Ticker string
	Time   []time.Time
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
}

func (*Candlestick) Kind() DatasetKind { return KindCandlestick }

// Len returns the number of candles.
func (c *Candlestick) Len() int { return len(c.Time) }

// Validate checks that every OHLC slice matches the time axis.
func (c *Candlestick) Validate() error {
	n := len(c.Time)
	for name, s := range map[string][]float64{"open": c.Open, "high": c.High, "low": c.Low, "close": c.Close} {
		if len(s) != n {
			return fmt.Errorf("candlestick %s has %d points, expected %d", name, len(s), n)
		}
	}
	return nil
}
