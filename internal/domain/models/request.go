package models

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks a request that cannot be classified at all, e.g. one without tickers.
var ErrConfiguration = errors.New("configuration error")

// RequestContext describes the TCA request that produced a RawResultSet.
type RequestContext struct {
	Tickers     []string
	TradeOrders []string
}

// Validate rejects requests without a primary ticker.
func (r RequestContext) Validate() error {
	if len(r.Tickers) == 0 {
		return fmt.Errorf("%w: ticker list is empty", ErrConfiguration)
	}
	for i, t := range r.Tickers {
		if t == "" {
			return fmt.Errorf("%w: ticker %d is empty", ErrConfiguration, i)
		}
	}
	return nil
}

// PrimaryTicker is the ticker substituted into single-ticker placeholder keys.
func (r RequestContext) PrimaryTicker() string {
	if len(r.Tickers) == 0 {
		return ""
	}
	return r.Tickers[0]
}

// IsMultiTicker reports whether per-ticker keys should be looked up.
func (r RequestContext) IsMultiTicker() bool { return len(r.Tickers) > 1 }
