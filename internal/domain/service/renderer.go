package service

import (
	"context"

	"TCAVis/internal/domain/models"
)

// Size is the display size of a chart in pixels.
type Size struct {
	Width  int
	Height int
}

// DistOptions parameterises a distribution chart. An empty Title lets the renderer pick one.
type DistOptions struct {
	Metric  string
	SplitBy string
	Title   string
}

// ChartRenderer turns classified frames into chart and table artifacts.
type ChartRenderer interface {
	PlotTimeline(ctx context.Context, frame *models.Frame, title string, size Size) (models.Artifact, error)
	PlotMarketTradeTimeline(ctx context.Context, title string, frame *models.Frame, candlestick *models.Candlestick, lines []string, size Size) (models.Artifact, error)
	PlotBar(ctx context.Context, frame *models.Frame, title string, size Size) (models.Artifact, error)
	PlotDist(ctx context.Context, frame *models.Frame, opts DistOptions, size Size) (models.Artifact, error)
	GenerateTable(ctx context.Context, frame *models.Frame) (models.Artifact, error)
}
