package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"TCAVis/internal/domain/models"
	domsvc "TCAVis/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type textArtifact string

func (a textArtifact) Render(w io.Writer) error {
	_, err := io.WriteString(w, string(a))
	return err
}

type marketCall struct {
	title       string
	candlestick *models.Candlestick
	lines       []string
}

// stubRenderer records calls and fails or panics on configured titles.
type stubRenderer struct {
	calls  atomic.Int32
	fail   map[string]error
	panics map[string]bool

	mu     sync.Mutex
	market []marketCall
	dists  []domsvc.DistOptions
	sizes  []domsvc.Size
}

func (r *stubRenderer) artifact(kind, title string, size domsvc.Size) (models.Artifact, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.sizes = append(r.sizes, size)
	r.mu.Unlock()
	if r.panics[title] {
		panic("boom")
	}
	if err := r.fail[title]; err != nil {
		return nil, err
	}
	return textArtifact(kind + ":" + title), nil
}

func (r *stubRenderer) PlotTimeline(_ context.Context, _ *models.Frame, title string, size domsvc.Size) (models.Artifact, error) {
	return r.artifact("timeline", title, size)
}

func (r *stubRenderer) PlotMarketTradeTimeline(_ context.Context, title string, _ *models.Frame, c *models.Candlestick, lines []string, size domsvc.Size) (models.Artifact, error) {
	r.mu.Lock()
	r.market = append(r.market, marketCall{title: title, candlestick: c, lines: lines})
	r.mu.Unlock()
	return r.artifact("market", title, size)
}

func (r *stubRenderer) PlotBar(_ context.Context, _ *models.Frame, title string, size domsvc.Size) (models.Artifact, error) {
	return r.artifact("bar", title, size)
}

func (r *stubRenderer) PlotDist(_ context.Context, _ *models.Frame, o domsvc.DistOptions, size domsvc.Size) (models.Artifact, error) {
	r.mu.Lock()
	r.dists = append(r.dists, o)
	r.mu.Unlock()
	return r.artifact("dist", o.Metric, size)
}

func (r *stubRenderer) GenerateTable(_ context.Context, _ *models.Frame) (models.Artifact, error) {
	return r.artifact("table", "table", domsvc.Size{})
}

func newTestResults(t *testing.T, raw models.RawResultSet, tickers ...string) *TCAResults {
	t.Helper()
	if len(tickers) == 0 {
		tickers = []string{"EURUSD"}
	}
	res, err := NewTCAResults(raw, models.RequestContext{Tickers: tickers}, WithResultID("r1"), WithChartSize(640, 320))
	require.NoError(t, err)
	return res
}

func fullResultSet() models.RawResultSet {
	return models.RawResultSet{
		"trade_df":                          timeFrame(3, "executed_price"),
		"timeline_trade_df_slippage_by_all": timeFrame(3, "slippage"),
		"sparse_market_trade_df":            timeFrame(3, "executed_price", "mid"),
		"candlestick_fig":                   candles("EURUSD", 3),
		"bar_trade_df_cost_by_venue":        timeFrame(2, "cost"),
		"dist_trade_df_slippage_by_venue":   timeFrame(4, "lit", "dark"),
		"table_trade_df_summary":            timeFrame(1, "total"),
		"market_df":                         timeFrame(3, "mid"),
	}
}

func TestDispatcherRendersEveryRenderableCollection(t *testing.T) {
	r := &stubRenderer{}
	d := NewDispatcher(r, WithLineStyles(map[string]string{"vwap": "#fff", "mid": "#000"}))
	res := newTestResults(t, fullResultSet())

	arts, err := d.Render(context.Background(), res, false)
	require.NoError(t, err)

	assert.Empty(t, arts.Failures)
	assert.Equal(t, 5, arts.Len())
	assert.Contains(t, arts.Timeline, "trade_df_slippage_by_all")
	assert.Contains(t, arts.SparseMarket, "EURUSD_trade_df")
	assert.Contains(t, arts.Bar, "trade_df_cost_by_venue")
	assert.Contains(t, arts.Dist, "trade_df_slippage_by_venue")
	assert.Contains(t, arts.Table, "trade_df_summary")

	require.Len(t, r.market, 1)
	assert.Equal(t, []string{"mid", "vwap", CandlestickLine}, r.market[0].lines)
	assert.Equal(t, "EURUSD", r.market[0].candlestick.Ticker)

	require.Len(t, r.dists, 1)
	assert.Equal(t, domsvc.DistOptions{Metric: "slippage", SplitBy: "venue"}, r.dists[0])

	assert.True(t, res.Rendered())
}

func TestDispatcherPassesChartSize(t *testing.T) {
	r := &stubRenderer{}
	res := newTestResults(t, models.RawResultSet{"timeline_a": timeFrame(2, "x")})

	_, err := NewDispatcher(r).Render(context.Background(), res, false)
	require.NoError(t, err)

	require.Len(t, r.sizes, 1)
	assert.Equal(t, domsvc.Size{Width: 640, Height: 320}, r.sizes[0])
}

func TestDispatcherCachesUntilForced(t *testing.T) {
	r := &stubRenderer{}
	d := NewDispatcher(r)
	res := newTestResults(t, models.RawResultSet{"timeline_a": timeFrame(2, "x"), "bar_b": timeFrame(2, "y")})

	first, err := d.Render(context.Background(), res, false)
	require.NoError(t, err)
	second, err := d.Render(context.Background(), res, false)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.EqualValues(t, 2, r.calls.Load())

	forced, err := d.Render(context.Background(), res, true)
	require.NoError(t, err)
	assert.NotSame(t, first, forced)
	assert.EqualValues(t, 4, r.calls.Load())
}

func TestDispatcherEmptyResult(t *testing.T) {
	r := &stubRenderer{}
	res := newTestResults(t, models.RawResultSet{"market_df": timeFrame(2, "mid"), "trade_df": timeFrame(1, "p")})

	arts, err := NewDispatcher(r).Render(context.Background(), res, false)
	require.NoError(t, err)

	assert.Zero(t, arts.Len())
	assert.Empty(t, arts.Failures)
	assert.Zero(t, r.calls.Load())
	assert.True(t, res.Rendered())
}

func TestDispatcherIsolatesFailures(t *testing.T) {
	r := &stubRenderer{
		fail:   map[string]error{"bad": errors.New("no numeric columns")},
		panics: map[string]bool{"boom": true},
	}
	res := newTestResults(t, models.RawResultSet{
		"timeline_bad":  timeFrame(2, "x"),
		"timeline_good": timeFrame(2, "x"),
		"bar_boom":      timeFrame(2, "y"),
		"bar_ok":        timeFrame(2, "y"),
	})

	arts, err := NewDispatcher(r).Render(context.Background(), res, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"good"}, keysOf(arts.Timeline))
	assert.Equal(t, []string{"ok"}, keysOf(arts.Bar))
	require.Len(t, arts.Failures, 2)

	byKey := map[string]*models.RenderError{}
	for _, f := range arts.Failures {
		byKey[f.Key] = f
	}
	assert.Equal(t, models.CategoryTimeline, byKey["bad"].Category)
	assert.EqualError(t, byKey["bad"].Err, "no numeric columns")
	assert.Equal(t, models.CategoryBar, byKey["boom"].Category)
	assert.Contains(t, byKey["boom"].Err.Error(), "renderer panic")
}

func TestDispatcherMissingCandlestick(t *testing.T) {
	r := &stubRenderer{}
	res := newTestResults(t, models.RawResultSet{"sparse_market_trade_df": timeFrame(2, "mid")})

	arts, err := NewDispatcher(r).Render(context.Background(), res, false)
	require.NoError(t, err)

	assert.Empty(t, arts.SparseMarket)
	require.Len(t, arts.Failures, 1)
	assert.Equal(t, "EURUSD_trade_df", arts.Failures[0].Key)
	assert.ErrorIs(t, arts.Failures[0], ErrCandlestickNotFound)
}

func TestDispatcherResolvesMultiTickerCandlestick(t *testing.T) {
	r := &stubRenderer{}
	gbp := candles("GBPUSD", 3)
	res := newTestResults(t, models.RawResultSet{
		"GBPUSD_candlestick_fig":        gbp,
		"GBPUSD_sparse_market_trade_df": timeFrame(3, "mid"),
	}, "EURUSD", "GBPUSD")

	arts, err := NewDispatcher(r).Render(context.Background(), res, false)
	require.NoError(t, err)

	assert.Empty(t, arts.Failures)
	assert.Contains(t, arts.SparseMarket, "GBPUSDtrade_df")
	require.Len(t, r.market, 1)
	assert.Same(t, gbp, r.market[0].candlestick)
}

func TestDispatcherConcurrentRenderRunsOnce(t *testing.T) {
	r := &stubRenderer{}
	d := NewDispatcher(r)
	res := newTestResults(t, models.RawResultSet{"timeline_a": timeFrame(2, "x"), "table_b": timeFrame(1, "y")})

	var wg sync.WaitGroup
	results := make([]*models.RenderedArtifacts, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			arts, err := d.Render(context.Background(), res, false)
			assert.NoError(t, err)
			results[i] = arts
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 2, r.calls.Load())
	for _, arts := range results {
		assert.Same(t, results[0], arts)
	}
}

func TestDispatcherCancelledContext(t *testing.T) {
	r := &stubRenderer{}
	res := newTestResults(t, models.RawResultSet{"timeline_a": timeFrame(2, "x")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDispatcher(r).Render(ctx, res, false)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Rendered())

	arts, err := NewDispatcher(r).Render(context.Background(), res, false)
	require.NoError(t, err)
	assert.Contains(t, arts.Timeline, "a")
}

func keysOf(m map[string]models.Artifact) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
