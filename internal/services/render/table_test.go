package render

import (
	"bytes"
	"context"
	"math"
	"testing"

	"TCAVis/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerateTable(t *testing.T) {
	frame := &models.Frame{
		Labels: []string{"lit", "dark"},
		Columns: []models.Column{
			{Name: "cost_bp", Values: []float64{1.25, math.Inf(1)}},
			{Name: "broker", Text: []string{"x", "y"}},
		},
	}

	art, err := NewEChartsRenderer().GenerateTable(context.Background(), frame)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, art.Render(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(tableSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"index", "cost_bp", "broker"}, rows[0])
	assert.Equal(t, []string{"lit", "1.25", "x"}, rows[1])
	assert.Equal(t, []string{"dark", "", "y"}, rows[2])
}

func TestGenerateTableWithoutIndex(t *testing.T) {
	frame := &models.Frame{Columns: []models.Column{{Name: "total", Values: []float64{3}}}}

	art, err := NewEChartsRenderer().GenerateTable(context.Background(), frame)
	require.NoError(t, err)

	cell, err := art.(*Workbook).File().GetCellValue(tableSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "total", cell)
}
