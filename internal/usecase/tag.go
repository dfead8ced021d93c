package usecase

import "strings"

const (
	splitByInfix = "_by_"
	frameInfix   = "_df_"
)

// DistTag is the parsed form of a distribution key such as "trade_df_slippage_by_venue".
type DistTag struct {
	SplitBy    string
	TradeOrder string
	Metric     string
}

// SplitTag splits a tag once on the first "_by_" and then once on the first "_df_".
// Parts that are not present stay empty; no part is validated.
func SplitTag(tag string) DistTag {
	var out DistTag

	middle := tag
	if before, after, ok := strings.Cut(middle, splitByInfix); ok {
		middle = before
		out.SplitBy = after
	}
	if before, after, ok := strings.Cut(middle, frameInfix); ok {
		// the frame name keeps its "_df" suffix, e.g. "trade_df"
		out.TradeOrder = before + "_df"
		out.Metric = after
	}
	return out
}
