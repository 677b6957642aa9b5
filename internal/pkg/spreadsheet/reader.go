// Package spreadsheet reads and writes xlsx workbooks.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheet       = errors.New("workbook has no sheets")
	ErrMissingColumn = errors.New("required column missing")
)

// Row is one data row keyed by normalised header name. Line is the 1-based sheet row.
type Row struct {
	Line   int
	Values map[string]string
}

func (r Row) Get(column string) string {
	return r.Values[column]
}

// ReadRows reads the first sheet of an xlsx workbook. The first row is the header; header
// cells are lower-cased with spaces turned into underscores. Blank rows are skipped.
// Every name in required must be present in the header.
func ReadRows(src io.Reader, required ...string) ([]Row, error) {
	file, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrNoSheet
	}

	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(required, ", "))
	}

	header := make([]string, len(rows[0]))
	present := make(map[string]bool, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = normalizeHeader(cell)
		present[header[i]] = true
	}
	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	result := make([]Row, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		values := make(map[string]string, len(header))
		blank := true
		for j, cell := range cells {
			if j >= len(header) || header[j] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				blank = false
			}
			values[header[j]] = cell
		}
		if blank {
			continue
		}
		result = append(result, Row{Line: i + 2, Values: values})
	}

	return result, nil
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}
