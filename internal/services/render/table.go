package render

import (
	"context"
	"fmt"
	"io"
	"math"

	"TCAVis/internal/domain/models"

	"github.com/xuri/excelize/v2"
)

const tableSheet = "TCA"

// Workbook is a styled single-sheet table artifact.
type Workbook struct {
	file *excelize.File
}

// Render writes the workbook as XLSX.
func (w *Workbook) Render(out io.Writer) error {
	return w.file.Write(out)
}

// File exposes the underlying workbook.
func (w *Workbook) File() *excelize.File { return w.file }

// GenerateTable lays the frame out as a sheet with a bold header row, an index column when the
// frame has one, and two-decimal number formatting.
func (r *EChartsRenderer) GenerateTable(ctx context.Context, frame *models.Frame) (models.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", tableSheet); err != nil {
		return nil, fmt.Errorf("table sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E78"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("table header style: %w", err)
	}
	number, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("table number style: %w", err)
	}

	hasIndex := len(frame.Index) > 0 || len(frame.Labels) > 0
	col := 1
	if hasIndex {
		if err := writeColumn(f, col, "index", frame.RowLabels(timeLayout), nil, header, 0); err != nil {
			return nil, err
		}
		col++
	}
	for _, c := range frame.Columns {
		if err := writeColumn(f, col, c.Name, c.Text, c.Values, header, number); err != nil {
			return nil, err
		}
		col++
	}

	if col > 1 {
		last, err := excelize.ColumnNumberToName(col - 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(tableSheet, "A", last, 18); err != nil {
			return nil, fmt.Errorf("table width: %w", err)
		}
	}
	return &Workbook{file: f}, nil
}

func writeColumn(f *excelize.File, col int, name string, text []string, values []float64, header, number int) error {
	cell, err := excelize.CoordinatesToCellName(col, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(tableSheet, cell, name); err != nil {
		return fmt.Errorf("table header %q: %w", name, err)
	}
	if err := f.SetCellStyle(tableSheet, cell, cell, header); err != nil {
		return err
	}

	for i, s := range text {
		if cell, err = excelize.CoordinatesToCellName(col, i+2); err != nil {
			return err
		}
		if err := f.SetCellValue(tableSheet, cell, s); err != nil {
			return fmt.Errorf("table %q row %d: %w", name, i, err)
		}
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if cell, err = excelize.CoordinatesToCellName(col, i+2); err != nil {
			return err
		}
		if err := f.SetCellValue(tableSheet, cell, v); err != nil {
			return fmt.Errorf("table %q row %d: %w", name, i, err)
		}
		if err := f.SetCellStyle(tableSheet, cell, cell, number); err != nil {
			return err
		}
	}
	return nil
}
