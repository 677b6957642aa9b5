package ledger

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var summaryNow = time.Date(2026, time.June, 15, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func slip(dept string, year int, month time.Month, net string) payroll.PayslipRecord {
	return payroll.PayslipRecord{
		EmployeeID: "emp-" + dept + net,
		Department: dept,
		Period:     payroll.Period{Year: year, Month: month},
		NetSalary:  d(net),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

func histogramCounts(s ledger.Summary) []int {
	counts := make([]int, 0, len(s.Histogram))
	for _, b := range s.Histogram {
		counts = append(counts, b.Count)
	}
	return counts
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, ledger.Filter{}, ledger.Window12, summaryNow)

	assertDecimal(t, "0", s.TotalPaid)
	assertDecimal(t, "0", s.AverageSalary)
	assert.Equal(t, 0, s.RecordCount)
	assert.Empty(t, s.Departments)
	assert.Equal(t, []int{0, 0, 0, 0, 0}, histogramCounts(s))
	require.Len(t, s.Trend, 12)
	for _, p := range s.Trend {
		assertDecimal(t, "0", p.Total)
	}
}

func TestSummarize_EmptyWithSixMonthWindow(t *testing.T) {
	s := Summarize([]payroll.PayslipRecord{}, ledger.Filter{Department: "Sales", Year: 2020}, ledger.Window6, summaryNow)

	require.Len(t, s.Trend, 6)
	assert.Equal(t, ledger.Filter{}, s.Filter)
}

func TestSummarize_TotalsAndAverage(t *testing.T) {
	records := []payroll.PayslipRecord{
		slip("Engineering", 2026, time.May, "4745"),
		slip("Engineering", 2026, time.June, "3000"),
		slip("Sales", 2026, time.June, "1255"),
	}

	s := Summarize(records, ledger.Filter{}, ledger.Window12, summaryNow)

	assert.Equal(t, 3, s.RecordCount)
	assertDecimal(t, "9000", s.TotalPaid)
	assertDecimal(t, "3000", s.AverageSalary)
}

func TestSummarize_SingleDepartmentTotalEqualsTotalPaid(t *testing.T) {
	records := []payroll.PayslipRecord{
		slip("Finance", 2026, time.January, "1200.50"),
		slip("Finance", 2026, time.February, "2200.25"),
		slip("Finance", 2025, time.December, "999.25"),
	}

	s := Summarize(records, ledger.Filter{}, ledger.Window12, summaryNow)

	require.Len(t, s.Departments, 1)
	assert.Equal(t, "Finance", s.Departments[0].Department)
	assert.Equal(t, 3, s.Departments[0].Count)
	assert.True(t, s.Departments[0].Total.Equal(s.TotalPaid))
}

func TestSummarize_DepartmentsSortedWithUnassigned(t *testing.T) {
	records := []payroll.PayslipRecord{
		slip("Sales", 2026, time.June, "100"),
		slip("", 2026, time.June, "50"),
		slip("Engineering", 2026, time.June, "300"),
		slip("  ", 2026, time.June, "25"),
	}

	s := Summarize(records, ledger.Filter{}, ledger.Window12, summaryNow)

	names := []string{}
	for _, dept := range s.Departments {
		names = append(names, dept.Department)
	}
	assert.Equal(t, []string{"Engineering", "Sales", "Unassigned"}, names)
	assertDecimal(t, "75", s.Departments[2].Total)
}

func TestSummarize_HistogramBoundaries(t *testing.T) {
	cases := []struct {
		net    string
		bucket int
	}{
		{"0", 0},
		{"-50", 0},
		{"1000.00", 0},
		{"1000.01", 1},
		{"1001", 1},
		{"2000", 1},
		{"2000.5", 2},
		{"3000", 2},
		{"4000", 3},
		{"4000.01", 4},
		{"25000", 4},
	}
	for _, c := range cases {
		t.Run(c.net, func(t *testing.T) {
			s := Summarize([]payroll.PayslipRecord{slip("Ops", 2026, time.June, c.net)}, ledger.Filter{}, ledger.Window12, summaryNow)

			want := []int{0, 0, 0, 0, 0}
			want[c.bucket] = 1
			assert.Equal(t, want, histogramCounts(s))
		})
	}
}

func TestSummarize_HistogramLabels(t *testing.T) {
	s := Summarize(nil, ledger.Filter{}, ledger.Window12, summaryNow)

	labels := []string{}
	for _, b := range s.Histogram {
		labels = append(labels, b.Label)
	}
	assert.Equal(t, []string{"0-1000", "1001-2000", "2001-3000", "3001-4000", "4001+"}, labels)
}

func TestSummarize_MonthlyTrendWindow(t *testing.T) {
	records := []payroll.PayslipRecord{
		slip("Ops", 2026, time.June, "100"),
		slip("Ops", 2026, time.June, "50"),
		slip("Ops", 2026, time.January, "200"),
		slip("Ops", 2025, time.July, "400"),  // first month of a 12-month window
		slip("Ops", 2025, time.June, "800"),  // just outside
		slip("Ops", 2026, time.July, "1600"), // future period
	}

	s := Summarize(records, ledger.Filter{}, ledger.Window12, summaryNow)

	require.Len(t, s.Trend, 12)
	assert.Equal(t, payroll.Period{Year: 2025, Month: time.July}, s.Trend[0].Period)
	assert.Equal(t, payroll.Period{Year: 2026, Month: time.June}, s.Trend[11].Period)
	assertDecimal(t, "400", s.Trend[0].Total)
	assertDecimal(t, "200", s.Trend[6].Total)
	assertDecimal(t, "150", s.Trend[11].Total)
	assertDecimal(t, "0", s.Trend[5].Total)

	total := decimal.Zero
	for _, p := range s.Trend {
		total = total.Add(p.Total)
	}
	assertDecimal(t, "750", total)
	// records outside the window still count in totals
	assertDecimal(t, "3150", s.TotalPaid)
}

func TestSummarize_SixMonthWindowCrossesYear(t *testing.T) {
	now := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	records := []payroll.PayslipRecord{
		slip("Ops", 2025, time.September, "10"),
		slip("Ops", 2025, time.August, "20"),
	}

	s := Summarize(records, ledger.Filter{}, ledger.Window6, now)

	require.Len(t, s.Trend, 6)
	assert.Equal(t, payroll.Period{Year: 2025, Month: time.September}, s.Trend[0].Period)
	assert.Equal(t, payroll.Period{Year: 2026, Month: time.February}, s.Trend[5].Period)
	assertDecimal(t, "10", s.Trend[0].Total)
}

func TestSummarize_UnsupportedWindowDefaultsToTwelve(t *testing.T) {
	s := Summarize(nil, ledger.Filter{}, ledger.Window(7), summaryNow)

	assert.Equal(t, ledger.Window12, s.Window)
	assert.Len(t, s.Trend, 12)
}

func TestSummarize_FilterByDepartmentAndYear(t *testing.T) {
	records := []payroll.PayslipRecord{
		slip("Sales", 2026, time.March, "1000"),
		slip("Sales", 2025, time.March, "2000"),
		slip("Engineering", 2026, time.March, "4000"),
	}

	s := Summarize(records, ledger.Filter{Department: "sales", Year: 2026}, ledger.Window12, summaryNow)

	assert.Equal(t, ledger.Filter{Department: "Sales", Year: 2026}, s.Filter)
	assert.Equal(t, 1, s.RecordCount)
	assertDecimal(t, "1000", s.TotalPaid)
}

func TestSummarize_FilterUnassigned(t *testing.T) {
	records := []payroll.PayslipRecord{
		slip("", 2026, time.March, "700"),
		slip("Sales", 2026, time.March, "1000"),
	}

	s := Summarize(records, ledger.Filter{Department: "Unassigned"}, ledger.Window12, summaryNow)

	assert.Equal(t, 1, s.RecordCount)
	assertDecimal(t, "700", s.TotalPaid)
}

func TestSummarize_UnknownFilterValuesFallBackToAll(t *testing.T) {
	records := []payroll.PayslipRecord{
		slip("Sales", 2026, time.March, "1000"),
		slip("Engineering", 2025, time.March, "4000"),
	}

	s := Summarize(records, ledger.Filter{Department: "Marketing", Year: 1999}, ledger.Window12, summaryNow)

	assert.Equal(t, ledger.Filter{}, s.Filter)
	assert.Equal(t, 2, s.RecordCount)
	assertDecimal(t, "5000", s.TotalPaid)
}

func TestSummarize_DoesNotMutateInput(t *testing.T) {
	records := []payroll.PayslipRecord{
		slip("Sales", 2026, time.March, "1000"),
		slip("", 2026, time.April, "10"),
	}
	before := make([]payroll.PayslipRecord, len(records))
	copy(before, records)

	Summarize(records, ledger.Filter{Department: "Unassigned"}, ledger.Window6, summaryNow)

	assert.Equal(t, before, records)
	assert.Equal(t, "", records[1].Department)
}

func TestSummarize_Deterministic(t *testing.T) {
	records := []payroll.PayslipRecord{
		slip("B", 2026, time.March, "1000"),
		slip("A", 2026, time.April, "2000"),
		slip("C", 2026, time.May, "3000"),
	}

	assert.Equal(t,
		Summarize(records, ledger.Filter{}, ledger.Window12, summaryNow),
		Summarize(records, ledger.Filter{}, ledger.Window12, summaryNow),
	)
}
