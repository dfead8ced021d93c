package usecase

import (
	"testing"

	"TCAVis/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySingleTicker(t *testing.T) {
	trades := timeFrame(3, "executed_price")
	timeline := timeFrame(3, "slippage")
	bar := timeFrame(2, "cost")
	dist := timeFrame(4, "venue_a")
	table := timeFrame(1, "total")
	market := timeFrame(5, "mid")
	sparse := timeFrame(3, "executed_price", "mid")
	fig := candles("EURUSD", 5)

	raw := models.RawResultSet{
		"trade_df":                          trades,
		"timeline_trade_df_slippage_by_all": timeline,
		"bar_trade_df_cost_by_venue":        bar,
		"dist_trade_df_slippage_by_venue":   dist,
		"table_trade_df_summary":            table,
		"market_df":                         market,
		"sparse_market_trade_df":            sparse,
		"candlestick_fig":                   fig,
		"GBPUSD_df":                         market,
		"debug_blob":                        table,
	}
	req := models.RequestContext{Tickers: []string{"EURUSD"}, TradeOrders: []string{"trade_df", "order_df"}}

	cr, err := Classify(raw, req)
	require.NoError(t, err)

	assert.Same(t, trades, cr.TradeOrder()["trade_df"])
	assert.Len(t, cr.TradeOrder(), 1)
	assert.Same(t, timeline, cr.Timeline()["trade_df_slippage_by_all"])
	assert.Same(t, bar, cr.Bar()["trade_df_cost_by_venue"])
	assert.Same(t, dist, cr.Dist()["trade_df_slippage_by_venue"])
	assert.Same(t, table, cr.Table()["trade_df_summary"])
	assert.Same(t, market, cr.Market()["EURUSD"])
	assert.Same(t, sparse, cr.SparseMarket()["EURUSD_trade_df"])

	got, ok := cr.Candlestick("EURUSD")
	require.True(t, ok)
	assert.Same(t, fig, got)

	assert.Equal(t, []string{"GBPUSD_df", "debug_blob"}, cr.Dropped())
	assert.Equal(t, 8, cr.Len())
}

func TestClassifyMultiTicker(t *testing.T) {
	eur := timeFrame(3, "mid")
	gbp := timeFrame(3, "mid")
	gbpFig := candles("GBPUSD", 3)
	eurFig := candles("EURUSD", 3)
	gbpSparse := timeFrame(2, "executed_price")

	raw := models.RawResultSet{
		"EURUSD_df":                     eur,
		"GBPUSD_df":                     gbp,
		"EURUSD_candlestick_fig":        eurFig,
		"GBPUSD_candlestick_fig":        gbpFig,
		"GBPUSD_sparse_market_trade_df": gbpSparse,
		"JPYUSD_df":                     gbp,
		"market_df":                     timeFrame(3, "mid"),
	}
	req := models.RequestContext{Tickers: []string{"EURUSD", "GBPUSD"}}

	cr, err := Classify(raw, req)
	require.NoError(t, err)

	assert.Same(t, eur, cr.Market()["EURUSD"], "per-ticker market data wins over market_df")
	assert.Same(t, gbp, cr.Market()["GBPUSD"])
	assert.Equal(t, []string{"EURUSD", "GBPUSD"}, cr.Keys(models.CategoryCandlestick))
	assert.Same(t, gbpSparse, cr.SparseMarket()["GBPUSDtrade_df"])
	assert.Equal(t, []string{"JPYUSD_df"}, cr.Dropped())
}

func TestClassifySparseTickerMustLead(t *testing.T) {
	tl := timeFrame(2, "executed_price")
	raw := models.RawResultSet{"timeline_GBPUSD_sparse_market_trade_df": tl}

	cr, err := Classify(raw, models.RequestContext{Tickers: []string{"EURUSD", "GBPUSD"}})
	require.NoError(t, err)

	assert.Same(t, tl, cr.Timeline()["GBPUSD_sparse_market_trade_df"])
	assert.Empty(t, cr.SparseMarket())
	assert.Equal(t, 1, cr.Len())
}

func TestClassifyDropsWrongKind(t *testing.T) {
	raw := models.RawResultSet{
		"timeline_fig":    candles("EURUSD", 2),
		"candlestick_fig": timeFrame(2, "mid"),
	}
	cr, err := Classify(raw, models.RequestContext{Tickers: []string{"EURUSD"}})
	require.NoError(t, err)

	assert.Empty(t, cr.Timeline())
	assert.Empty(t, cr.Candlesticks())
	assert.Equal(t, []string{"candlestick_fig", "timeline_fig"}, cr.Dropped())
}

func TestClassifyRejectsMissingTickers(t *testing.T) {
	raw := models.RawResultSet{"timeline_x": timeFrame(1, "a")}

	_, err := Classify(raw, models.RequestContext{})
	require.ErrorIs(t, err, models.ErrConfiguration)

	_, err = Classify(raw, models.RequestContext{Tickers: []string{"EURUSD", ""}})
	require.ErrorIs(t, err, models.ErrConfiguration)
}

func TestClassifyEmptyResultSet(t *testing.T) {
	cr, err := Classify(models.RawResultSet{}, models.RequestContext{Tickers: []string{"EURUSD"}})
	require.NoError(t, err)

	assert.Zero(t, cr.Len())
	assert.Empty(t, cr.Dropped())
	for _, c := range models.FrameCategories {
		assert.NotNil(t, cr.Frames(c), c)
	}
}

func TestClassifiedResultReturnsCopies(t *testing.T) {
	raw := models.RawResultSet{"timeline_a": timeFrame(1, "x")}
	cr, err := Classify(raw, models.RequestContext{Tickers: []string{"EURUSD"}})
	require.NoError(t, err)

	m := cr.Timeline()
	delete(m, "a")
	m["b"] = timeFrame(1, "y")

	assert.Equal(t, []string{"a"}, cr.Keys(models.CategoryTimeline))
}
