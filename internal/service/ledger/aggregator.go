package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// histogramBuckets returns fresh, empty salary-range buckets. A net salary equal to an upper
// bound belongs to that bucket; negative net salaries count in the first one.
func histogramBuckets() []ledger.HistogramBucket {
	upper := func(v int64) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.NewFromInt(v)) }
	return []ledger.HistogramBucket{
		{Label: "0-1000", Upper: upper(1000)},
		{Label: "1001-2000", Upper: upper(2000)},
		{Label: "2001-3000", Upper: upper(3000)},
		{Label: "3001-4000", Upper: upper(4000)},
		{Label: "4001+"},
	}
}

// Summarize folds a snapshot of payslips into ledger figures. It never mutates records and
// never fails: a department or year that no record carries falls back to "all", an unsupported
// window falls back to ledger.DefaultWindow, and an empty set yields zeros. The monthly trend
// covers the window months ending with the month of now.
func Summarize(records []payroll.PayslipRecord, filter ledger.Filter, window ledger.Window, now time.Time) ledger.Summary {
	if !window.Valid() {
		window = ledger.DefaultWindow
	}
	filter = resolveFilter(records, filter)

	summary := ledger.Summary{
		Filter:        filter,
		Window:        window,
		TotalPaid:     decimal.Zero,
		AverageSalary: decimal.Zero,
		Departments:   []ledger.DepartmentTotal{},
		Trend:         make([]ledger.TrendPoint, int(window)),
		Histogram:     histogramBuckets(),
	}

	last := payroll.NewPeriod(now)
	trendIndex := make(map[payroll.Period]int, int(window))
	for i := range summary.Trend {
		p := last.AddMonths(i - int(window) + 1)
		summary.Trend[i] = ledger.TrendPoint{Period: p, Total: decimal.Zero}
		trendIndex[p] = i
	}

	departments := make(map[string]*ledger.DepartmentTotal)
	for _, r := range records {
		if !matches(r, filter) {
			continue
		}
		summary.RecordCount++
		summary.TotalPaid = summary.TotalPaid.Add(r.NetSalary)

		name := departmentName(r.Department)
		dept, ok := departments[name]
		if !ok {
			dept = &ledger.DepartmentTotal{Department: name, Total: decimal.Zero}
			departments[name] = dept
		}
		dept.Total = dept.Total.Add(r.NetSalary)
		dept.Count++

		if i, ok := trendIndex[r.Period]; ok {
			summary.Trend[i].Total = summary.Trend[i].Total.Add(r.NetSalary)
		}

		summary.Histogram[bucketFor(summary.Histogram, r.NetSalary)].Count++
	}

	if summary.RecordCount > 0 {
		summary.AverageSalary = summary.TotalPaid.Div(decimal.NewFromInt(int64(summary.RecordCount)))
	}

	for _, dept := range departments {
		summary.Departments = append(summary.Departments, *dept)
	}
	sort.Slice(summary.Departments, func(i, j int) bool {
		return summary.Departments[i].Department < summary.Departments[j].Department
	})

	return summary
}

func departmentName(department string) string {
	if strings.TrimSpace(department) == "" {
		return ledger.UnassignedDepartment
	}
	return department
}

// resolveFilter drops filter values that match no record.
func resolveFilter(records []payroll.PayslipRecord, filter ledger.Filter) ledger.Filter {
	resolved := ledger.Filter{}
	for _, r := range records {
		if filter.Department != "" && resolved.Department == "" && strings.EqualFold(departmentName(r.Department), filter.Department) {
			resolved.Department = departmentName(r.Department)
		}
		if filter.Year != 0 && r.Period.Year == filter.Year {
			resolved.Year = filter.Year
		}
	}
	return resolved
}

func matches(r payroll.PayslipRecord, filter ledger.Filter) bool {
	if filter.Department != "" && departmentName(r.Department) != filter.Department {
		return false
	}
	if filter.Year != 0 && r.Period.Year != filter.Year {
		return false
	}
	return true
}

func bucketFor(buckets []ledger.HistogramBucket, net decimal.Decimal) int {
	for i, b := range buckets {
		if b.Upper.Valid && net.LessThanOrEqual(b.Upper.Decimal) {
			return i
		}
	}
	return len(buckets) - 1
}
