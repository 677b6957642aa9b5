package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Workbook builds an xlsx file one sheet at a time.
type Workbook struct {
	file        *excelize.File
	headerStyle int
	sheets      int
}

func NewWorkbook() (*Workbook, error) {
	file := excelize.NewFile()
	style, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
	})
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	return &Workbook{file: file, headerStyle: style}, nil
}

// AddSheet appends a sheet with a bold header row followed by rows.
func (w *Workbook) AddSheet(name string, header []string, rows [][]any) error {
	if w.sheets == 0 {
		// A new file starts with "Sheet1"; reuse it for the first sheet.
		if err := w.file.SetSheetName(w.file.GetSheetName(0), name); err != nil {
			return fmt.Errorf("failed to rename sheet: %w", err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to add sheet %q: %w", name, err)
	}
	w.sheets++

	if err := w.file.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", name, err)
	}
	if err := w.file.SetRowStyle(name, 1, 1, w.headerStyle); err != nil {
		return fmt.Errorf("failed to style header of %q: %w", name, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.file.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+2, name, err)
		}
	}

	if len(header) > 0 {
		last, err := excelize.ColumnNumberToName(len(header))
		if err != nil {
			return err
		}
		if err := w.file.SetColWidth(name, "A", last, 18); err != nil {
			return fmt.Errorf("failed to size columns of %q: %w", name, err)
		}
	}
	return nil
}

// WriteTo writes the workbook as xlsx and releases it.
func (w *Workbook) WriteTo(dst io.Writer) (int64, error) {
	defer func() { _ = w.file.Close() }()
	return w.file.WriteTo(dst)
}
