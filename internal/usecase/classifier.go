package usecase

import (
	"maps"
	"slices"
	"strings"

	"TCAVis/internal/domain/models"
)

const (
	marketSuffix       = "_df"
	candlestickSuffix  = "_candlestick_fig"
	sparseMarketInfix  = "_sparse_market_"
	sparseMarketMarker = "sparse_market"
)

// keyRule is one entry of the naming convention emitted by the TCA engine.
// Ticker-bound rules replace Fragment with the primary ticker instead of stripping the prefix.
type keyRule struct {
	Prefix      string
	Category    models.Category
	TickerBound bool
	Fragment    string
}

// keyRules are tested in order; the first matching prefix wins.
var keyRules = []keyRule{
	{Prefix: "timeline_", Category: models.CategoryTimeline},
	{Prefix: "bar_", Category: models.CategoryBar},
	{Prefix: "dist_", Category: models.CategoryDist},
	{Prefix: "table_", Category: models.CategoryTable},
	{Prefix: "market_df", Category: models.CategoryMarket, TickerBound: true, Fragment: "market_df"},
	{Prefix: "sparse_market_", Category: models.CategorySparseMarket, TickerBound: true, Fragment: sparseMarketMarker},
	{Prefix: "candlestick_fig", Category: models.CategoryCandlestick, TickerBound: true, Fragment: "candlestick_fig"},
}

// normalize returns the collection key for a raw key matched by the rule.
func (r keyRule) normalize(key, ticker string) string {
	if r.TickerBound {
		return ticker + strings.TrimPrefix(key, r.Fragment)
	}
	return strings.TrimPrefix(key, r.Prefix)
}

func matchRule(key string) (keyRule, bool) {
	for _, r := range keyRules {
		if strings.HasPrefix(key, r.Prefix) {
			return r, true
		}
	}
	return keyRule{}, false
}

// classification accumulates collections during a single Classify call.
type classification struct {
	frames       map[models.Category]map[string]*models.Frame
	candlesticks map[string]*models.Candlestick
	consumed     map[string]struct{}
}

func (c *classification) putFrame(cat models.Category, key, rawKey string, ds models.Dataset) bool {
	f, ok := ds.(*models.Frame)
	if !ok {
		return false
	}
	if c.frames[cat] == nil {
		c.frames[cat] = map[string]*models.Frame{}
	}
	c.frames[cat][key] = f
	c.consumed[rawKey] = struct{}{}
	return true
}

func (c *classification) putCandlestick(key, rawKey string, ds models.Dataset) bool {
	fig, ok := ds.(*models.Candlestick)
	if !ok {
		return false
	}
	c.candlesticks[key] = fig
	c.consumed[rawKey] = struct{}{}
	return true
}

// Classify groups a raw TCA result set by naming convention. Keys that match no convention are
// left out of every collection and listed in Dropped. An empty ticker list is rejected with
// models.ErrConfiguration.
func Classify(raw models.RawResultSet, req models.RequestContext) (*models.ClassifiedResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c := &classification{
		frames:       make(map[models.Category]map[string]*models.Frame),
		candlesticks: make(map[string]*models.Candlestick),
		consumed:     make(map[string]struct{}),
	}
	keys := slices.Sorted(maps.Keys(raw))
	primary := req.PrimaryTicker()

	tradeOrders := make(map[string]struct{}, len(req.TradeOrders))
	for _, id := range req.TradeOrders {
		ds, ok := raw[id]
		if !ok {
			continue
		}
		tradeOrders[id] = struct{}{}
		c.putFrame(models.CategoryTradeOrder, id, id, ds)
	}

	for _, key := range keys {
		if _, ok := tradeOrders[key]; ok {
			continue
		}
		rule, ok := matchRule(key)
		if !ok {
			continue
		}
		norm := rule.normalize(key, primary)
		if rule.Category == models.CategoryCandlestick {
			c.putCandlestick(norm, key, raw[key])
			continue
		}
		c.putFrame(rule.Category, norm, key, raw[key])
	}

	if req.IsMultiTicker() {
		for _, t := range req.Tickers {
			if ds, ok := raw[t+marketSuffix]; ok {
				c.putFrame(models.CategoryMarket, t, t+marketSuffix, ds)
			}
			if ds, ok := raw[t+candlestickSuffix]; ok {
				c.putCandlestick(t, t+candlestickSuffix, ds)
			}
		}

		for _, key := range keys {
			for _, t := range req.Tickers {
				if strings.HasPrefix(key, t+sparseMarketInfix) {
					c.putFrame(models.CategorySparseMarket, strings.ReplaceAll(key, sparseMarketInfix, ""), key, raw[key])
					break
				}
			}
		}
	}

	dropped := make([]string, 0)
	for _, key := range keys {
		if _, ok := c.consumed[key]; !ok {
			dropped = append(dropped, key)
		}
	}

	return models.NewClassifiedResult(req, c.frames, c.candlesticks, dropped), nil
}
