package usecase

import (
	"sync"
	"time"

	"TCAVis/internal/domain/models"
	domsvc "TCAVis/internal/domain/service"
)

const (
	DefaultPreamble    = "See the below charts for results"
	DefaultChartWidth  = 980
	DefaultChartHeight = 500
)

// TCAResults holds a classified TCA computation together with its lazily rendered charts.
type TCAResults struct {
	id         string
	preamble   string
	size       domsvc.Size
	classified *models.ClassifiedResult

	mu         sync.Mutex
	rendered   bool
	artifacts  *models.RenderedArtifacts
	renderedAt time.Time
}

// ResultsOption configures TCAResults.
type ResultsOption func(*TCAResults)

// WithResultID sets the identifier the result is stored and served under.
func WithResultID(id string) ResultsOption {
	return func(r *TCAResults) {
		r.id = id
	}
}

// WithPreamble sets the text shown above the charts in a report.
func WithPreamble(text string) ResultsOption {
	return func(r *TCAResults) {
		if text != "" {
			r.preamble = text
		}
	}
}

// WithChartSize sets the display size passed to every chart renderer call.
func WithChartSize(width, height int) ResultsOption {
	return func(r *TCAResults) {
		if width > 0 {
			r.size.Width = width
		}
		if height > 0 {
			r.size.Height = height
		}
	}
}

// NewTCAResults classifies raw once and returns the holder. Charts are rendered on demand
// by a Dispatcher.
func NewTCAResults(raw models.RawResultSet, req models.RequestContext, opts ...ResultsOption) (*TCAResults, error) {
	classified, err := Classify(raw, req)
	if err != nil {
		return nil, err
	}
	r := &TCAResults{
		preamble:   DefaultPreamble,
		size:       domsvc.Size{Width: DefaultChartWidth, Height: DefaultChartHeight},
		classified: classified,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *TCAResults) ID() string                           { return r.id }
func (r *TCAResults) Preamble() string                     { return r.preamble }
func (r *TCAResults) ChartSize() domsvc.Size               { return r.size }
func (r *TCAResults) Classified() *models.ClassifiedResult { return r.classified }

// Rendered reports whether charts have been rendered and cached.
func (r *TCAResults) Rendered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rendered
}

// Artifacts returns the cached artifacts, if any.
func (r *TCAResults) Artifacts() (*models.RenderedArtifacts, time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.artifacts, r.renderedAt, r.rendered
}
