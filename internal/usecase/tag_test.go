package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTag(t *testing.T) {
	tests := []struct {
		tag  string
		want DistTag
	}{
		{"trade_df_slippage_by_venue", DistTag{SplitBy: "venue", TradeOrder: "trade_df", Metric: "slippage"}},
		{"trade_df_slippage", DistTag{TradeOrder: "trade_df", Metric: "slippage"}},
		{"slippage_by_venue", DistTag{SplitBy: "venue"}},
		{"order_df_cost_by_side_by_venue", DistTag{SplitBy: "side_by_venue", TradeOrder: "order_df", Metric: "cost"}},
		{"order_df_cost_df_x", DistTag{TradeOrder: "order_df", Metric: "cost_df_x"}},
		{"all_slippage", DistTag{}},
		{"", DistTag{}},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitTag(tt.tag))
		})
	}
}
