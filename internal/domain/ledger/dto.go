package ledger

import (
	"strconv"
	"strings"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

const (
	// AllDepartments and AllYears are the filter values that disable filtering.
	AllDepartments = "all"
	AllYears       = "all"

	UnassignedDepartment = "Unassigned"
)

// Window is the length of the monthly trend in months.
type Window int

const (
	Window6       Window = 6
	Window12      Window = 12
	DefaultWindow        = Window12
)

// ParseWindow accepts "6" or "12"; anything else yields DefaultWindow.
func ParseWindow(s string) Window {
	switch strings.TrimSpace(s) {
	case "6":
		return Window6
	case "12":
		return Window12
	default:
		return DefaultWindow
	}
}

// Valid reports whether w is one of the supported windows.
func (w Window) Valid() bool {
	return w == Window6 || w == Window12
}

// Filter selects which payslips are summarised. The zero value selects everything.
type Filter struct {
	Department string // "" = all
	Year       int    // 0 = all
}

// ParseFilter never fails: blank, "all" and malformed values select everything.
func ParseFilter(department, year string) Filter {
	var f Filter

	department = strings.TrimSpace(department)
	if department != "" && !strings.EqualFold(department, AllDepartments) {
		f.Department = department
	}

	if y, err := strconv.Atoi(strings.TrimSpace(year)); err == nil && y >= 1900 && y <= 9999 {
		f.Year = y
	}
	return f
}

func (f Filter) DepartmentLabel() string {
	if f.Department == "" {
		return AllDepartments
	}
	return f.Department
}

func (f Filter) YearLabel() string {
	if f.Year == 0 {
		return AllYears
	}
	return strconv.Itoa(f.Year)
}

// Query is the raw query string of a ledger request.
type Query struct {
	Department string
	Year       string
	Window     string
}

// ========== SUMMARY ==========

type DepartmentTotal struct {
	Department string
	Total      decimal.Decimal
	Count      int
}

type TrendPoint struct {
	Period payroll.Period
	Total  decimal.Decimal
}

// HistogramBucket counts payslips whose net salary is in (previous Upper, Upper].
// The last bucket has no upper bound.
type HistogramBucket struct {
	Label string
	Upper decimal.NullDecimal
	Count int
}

// Summary is recomputed from a record snapshot on every read and never stored.
type Summary struct {
	Filter        Filter
	Window        Window
	RecordCount   int
	TotalPaid     decimal.Decimal
	AverageSalary decimal.Decimal
	Departments   []DepartmentTotal // sorted by department name
	Trend         []TrendPoint      // oldest first, exactly Window entries
	Histogram     []HistogramBucket
}

// ========== RESPONSE DTOs ==========

type FilterResponse struct {
	Department string `json:"department"`
	Year       string `json:"year"`
	Window     int    `json:"window"`
}

type DepartmentTotalResponse struct {
	Department string `json:"department"`
	Total      string `json:"total"`
	Display    string `json:"display"`
	Count      int    `json:"count"`
}

type TrendPointResponse struct {
	Month   string `json:"month"` // YYYY-MM
	Label   string `json:"label"` // e.g. "Jan 2026"
	Total   string `json:"total"`
	Display string `json:"display"`
}

type HistogramBucketResponse struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

type SummaryResponse struct {
	Filter        FilterResponse            `json:"filter"`
	RecordCount   int                       `json:"record_count"`
	TotalPaid     string                    `json:"total_paid"`
	AverageSalary string                    `json:"average_salary"`
	Display       SummaryDisplay            `json:"display"`
	Departments   []DepartmentTotalResponse `json:"departments"`
	MonthlyTrend  []TrendPointResponse      `json:"monthly_trend"`
	Histogram     []HistogramBucketResponse `json:"salary_histogram"`
}

type SummaryDisplay struct {
	TotalPaid     string `json:"total_paid"`
	AverageSalary string `json:"average_salary"`
}

// ========== STREAM ==========

const (
	EventPayslipCreated   = "payslip.created"
	EventBulkRunCompleted = "payroll.bulk_completed"
	EventDocumentReady    = "payslip.document_ready"
	TopicLedger           = "ledger"
	employeeTopicPrefix   = "employee:"
)

// EmployeeTopic is the stream topic of a single employee's payslip events.
func EmployeeTopic(employeeID string) string {
	return employeeTopicPrefix + employeeID
}

// StreamEvent is one server-sent event.
type StreamEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
