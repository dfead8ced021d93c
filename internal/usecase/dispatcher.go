package usecase

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"TCAVis/internal/domain/models"
	domrepo "TCAVis/internal/domain/repository"
	domsvc "TCAVis/internal/domain/service"
	"TCAVis/pkg/logger"
	"TCAVis/pkg/metrics"

	"golang.org/x/sync/errgroup"
)

// CandlestickLine is always the last overlay line of a market/trade chart.
const CandlestickLine = "candlestick"

// ErrCandlestickNotFound is reported for sparse market entries whose ticker has no figure.
var ErrCandlestickNotFound = errors.New("candlestick figure not found")

// Dispatcher renders every renderable collection of a TCAResults through a ChartRenderer.
type Dispatcher struct {
	renderer domsvc.ChartRenderer
	lines    []string
	metrics  domrepo.Metrics
	logger   *logger.Logger
}

// DispatcherOption configures Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLineStyles sets the overlay lines drawn on market/trade charts from a line→style mapping.
func WithLineStyles(styles map[string]string) DispatcherOption {
	return func(d *Dispatcher) {
		d.lines = append(slices.Sorted(maps.Keys(styles)), CandlestickLine)
	}
}

// WithDispatcherMetrics sets the metrics recorder.
func WithDispatcherMetrics(m domrepo.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithDispatcherLogger sets the logger used for per-entry failures.
func WithDispatcherLogger(l *logger.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDispatcher(renderer domsvc.ChartRenderer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		renderer: renderer,
		lines:    []string{CandlestickLine},
		metrics:  metrics.Noop{},
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OverlayLines returns the ordered line names passed to the market/trade renderer.
func (d *Dispatcher) OverlayLines() []string { return slices.Clone(d.lines) }

type renderFunc func(ctx context.Context, key string, frame *models.Frame) (models.Artifact, error)

type renderPass struct {
	category models.Category
	render   renderFunc
}

type passOutput struct {
	artifacts map[string]models.Artifact
	failures  []*models.RenderError
}

// Render returns the cached artifacts of res unless force is set or nothing was rendered yet.
// A failing entry is reported in RenderedArtifacts.Failures and does not stop the other entries;
// only context cancellation aborts the whole render, in which case nothing is cached.
func (d *Dispatcher) Render(ctx context.Context, res *TCAResults, force bool) (*models.RenderedArtifacts, error) {
	res.mu.Lock()
	defer res.mu.Unlock()

	if res.rendered && !force {
		return res.artifacts, nil
	}

	start := time.Now()
	passes := d.passes(res)
	outputs := make([]passOutput, len(passes))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range passes {
		g.Go(func() error {
			out, err := d.runPass(gctx, res.classified, p)
			outputs[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		d.metrics.RecordError("render_aborted")
		return nil, fmt.Errorf("render %s: %w", res.id, err)
	}

	arts := models.NewRenderedArtifacts()
	for i, p := range passes {
		maps.Copy(arts.Collection(p.category), outputs[i].artifacts)
		arts.Failures = append(arts.Failures, outputs[i].failures...)
	}

	res.artifacts = arts
	res.rendered = true
	res.renderedAt = time.Now()
	d.metrics.RecordLatency("render_seconds", time.Since(start).Seconds())
	return arts, nil
}

func (d *Dispatcher) passes(res *TCAResults) []renderPass {
	cr := res.classified
	size := res.size
	return []renderPass{
		{models.CategoryTimeline, func(ctx context.Context, key string, f *models.Frame) (models.Artifact, error) {
			return d.renderer.PlotTimeline(ctx, f, key, size)
		}},
		{models.CategorySparseMarket, func(ctx context.Context, key string, f *models.Frame) (models.Artifact, error) {
			fig, err := candlestickFor(cr, key)
			if err != nil {
				return nil, err
			}
			return d.renderer.PlotMarketTradeTimeline(ctx, key, f, fig, d.OverlayLines(), size)
		}},
		{models.CategoryBar, func(ctx context.Context, key string, f *models.Frame) (models.Artifact, error) {
			return d.renderer.PlotBar(ctx, f, key, size)
		}},
		{models.CategoryDist, func(ctx context.Context, key string, f *models.Frame) (models.Artifact, error) {
			tag := SplitTag(key)
			return d.renderer.PlotDist(ctx, f, domsvc.DistOptions{Metric: tag.Metric, SplitBy: tag.SplitBy}, size)
		}},
		{models.CategoryTable, func(ctx context.Context, key string, f *models.Frame) (models.Artifact, error) {
			return d.renderer.GenerateTable(ctx, f)
		}},
	}
}

func (d *Dispatcher) runPass(ctx context.Context, cr *models.ClassifiedResult, p renderPass) (passOutput, error) {
	frames := cr.Frames(p.category)
	out := passOutput{artifacts: make(map[string]models.Artifact, len(frames))}

	for _, key := range slices.Sorted(maps.Keys(frames)) {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		art, err := renderEntry(ctx, p.render, key, frames[key])
		if err == nil && art == nil {
			err = fmt.Errorf("renderer returned no artifact")
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			rerr := &models.RenderError{Category: p.category, Key: key, Err: err}
			out.failures = append(out.failures, rerr)
			d.metrics.RecordRender(string(p.category), "failed")
			d.logger.Warn("render entry failed",
				logger.String("category", string(p.category)),
				logger.String("key", key),
				logger.Error(err),
			)
			continue
		}
		out.artifacts[key] = art
		d.metrics.RecordRender(string(p.category), "ok")
	}
	return out, nil
}

// renderEntry shields the pass from a panicking renderer.
func renderEntry(ctx context.Context, fn renderFunc, key string, f *models.Frame) (art models.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			art = nil
			err = fmt.Errorf("renderer panic: %v", r)
		}
	}()
	return fn(ctx, key, f)
}

// candlestickFor resolves the figure for a sparse market key from the ticker before the first "_".
// Keys re-registered from "<ticker>_sparse_market_<x>" have no separator after the ticker, so the
// longest request ticker prefixing the key is tried next.
func candlestickFor(cr *models.ClassifiedResult, key string) (*models.Candlestick, error) {
	ticker, _, _ := strings.Cut(key, "_")
	if fig, ok := cr.Candlestick(ticker); ok {
		return fig, nil
	}
	var best *models.Candlestick
	bestLen := 0
	for _, t := range cr.Tickers() {
		if len(t) <= bestLen || !strings.HasPrefix(key, t) {
			continue
		}
		if fig, ok := cr.Candlestick(t); ok {
			best, bestLen = fig, len(t)
		}
	}
	if best != nil {
		return best, nil
	}
	return nil, fmt.Errorf("%w for ticker %q", ErrCandlestickNotFound, ticker)
}
