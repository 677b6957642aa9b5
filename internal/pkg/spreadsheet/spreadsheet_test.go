package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	wb, err := NewWorkbook()
	require.NoError(t, err)
	require.NoError(t, wb.AddSheet("Payroll", []string{"Employee ID", "Employee Name", "Department", "Base Salary"}, rows))

	var buf bytes.Buffer
	_, err = wb.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestReadRows_NormalisesHeaderAndSkipsBlankRows(t *testing.T) {
	buf := buildSheet(t, [][]any{
		{"e1", "Dana Reyes", "Engineering", 5000},
		{"", "", "", ""},
		{"e2", "Kim Park", "", "abc"},
	})

	rows, err := ReadRows(buf, "employee_id", "base_salary")

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "e1", rows[0].Get("employee_id"))
	assert.Equal(t, "5000", rows[0].Get("base_salary"))
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "abc", rows[1].Get("base_salary"))
	assert.Equal(t, "", rows[1].Get("department"))
}

func TestReadRows_MissingColumn(t *testing.T) {
	wb, err := NewWorkbook()
	require.NoError(t, err)
	require.NoError(t, wb.AddSheet("Payroll", []string{"Employee ID"}, [][]any{{"e1"}}))
	var buf bytes.Buffer
	_, err = wb.WriteTo(&buf)
	require.NoError(t, err)

	_, err = ReadRows(&buf, "employee_id", "base_salary")

	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "base_salary")
}

func TestReadRows_NotAWorkbook(t *testing.T) {
	_, err := ReadRows(bytes.NewBufferString("employee_id,base_salary\n"), "employee_id")

	assert.Error(t, err)
}

func TestWorkbook_MultipleSheets(t *testing.T) {
	wb, err := NewWorkbook()
	require.NoError(t, err)
	require.NoError(t, wb.AddSheet("Summary", []string{"Metric", "Value"}, [][]any{{"Total paid", "4745.00"}}))
	require.NoError(t, wb.AddSheet("Trend", []string{"Month", "Total"}, [][]any{{"2026-03", "4745.00"}}))

	var buf bytes.Buffer
	_, err = wb.WriteTo(&buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Trend"}, f.GetSheetList())
	value, err := f.GetCellValue("Trend", "B2")
	require.NoError(t, err)
	assert.Equal(t, "4745.00", value)
}
