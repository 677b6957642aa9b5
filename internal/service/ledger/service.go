package ledger

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/spreadsheet"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/sse"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type LedgerServiceImpl struct {
	repo          ledger.LedgerRepository
	hub           *sse.Hub
	defaultWindow ledger.Window
	now           func() time.Time
}

func NewLedgerService(repo ledger.LedgerRepository, hub *sse.Hub, defaultWindow int, now func() time.Time) ledger.LedgerService {
	window := ledger.Window(defaultWindow)
	if !window.Valid() {
		window = ledger.DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &LedgerServiceImpl{
		repo:          repo,
		hub:           hub,
		defaultWindow: window,
		now:           now,
	}
}

// requireAdmin checks the caller; the ledger spans every employee.
func requireAdmin(ctx context.Context) error {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to extract claims from context: %w", err)
	}
	p, err := user.PrincipalFromClaims(claims)
	if err != nil {
		return err
	}
	if !p.IsAdmin() {
		return user.ErrAdminAccessRequired
	}
	return nil
}

func (s *LedgerServiceImpl) window(raw string) ledger.Window {
	if raw == "" {
		return s.defaultWindow
	}
	return ledger.ParseWindow(raw)
}

func (s *LedgerServiceImpl) summarize(ctx context.Context, q ledger.Query) (ledger.Summary, []payroll.PayslipRecord, error) {
	records, err := s.repo.ListPayslips(ctx)
	if err != nil {
		return ledger.Summary{}, nil, err
	}
	summary := Summarize(records, ledger.ParseFilter(q.Department, q.Year), s.window(q.Window), s.now())
	return summary, records, nil
}

func (s *LedgerServiceImpl) Summary(ctx context.Context, q ledger.Query) (ledger.SummaryResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return ledger.SummaryResponse{}, err
	}

	summary, _, err := s.summarize(ctx, q)
	if err != nil {
		return ledger.SummaryResponse{}, err
	}
	return mapToSummaryResponse(summary), nil
}

func (s *LedgerServiceImpl) Departments(ctx context.Context) ([]string, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListDepartments(ctx)
}

// Export writes the summary and the payslips it covers as an xlsx workbook with the sheets
// Summary, Departments, Trend, Histogram and Payslips.
func (s *LedgerServiceImpl) Export(ctx context.Context, q ledger.Query, w io.Writer) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	var (
		summary     ledger.Summary
		records     []payroll.PayslipRecord
		departments []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, records, err = s.summarize(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		departments, err = s.repo.ListDepartments(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	wb, err := spreadsheet.NewWorkbook()
	if err != nil {
		return err
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{"Summary", []string{"Metric", "Value"}, summaryRows(summary)},
		{"Departments", []string{"Department", "Payslips", "Total Paid"}, departmentRows(summary, departments)},
		{"Trend", []string{"Month", "Total Paid"}, trendRows(summary)},
		{"Histogram", []string{"Net Salary Range", "Payslips"}, histogramRows(summary)},
		{"Payslips", payslipHeader, payslipRows(records, summary.Filter)},
	}
	for _, sheet := range sheets {
		if err := wb.AddSheet(sheet.name, sheet.header, sheet.rows); err != nil {
			return fmt.Errorf("failed to write %s sheet: %w", sheet.name, err)
		}
	}

	if _, err := wb.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write ledger export: %w", err)
	}
	return nil
}

// Subscribe forwards hub events on topic until ctx ends or cleanup is called.
func (s *LedgerServiceImpl) Subscribe(ctx context.Context, topic string) (<-chan ledger.StreamEvent, func()) {
	events, cleanup := s.hub.Subscribe(topic)
	out := make(chan ledger.StreamEvent)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case out <- ledger.StreamEvent{Event: ev.Event, Data: ev.Data}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cleanup
}

// ========== MAPPING ==========

func trendLabel(p payroll.Period) string {
	return p.Start(time.UTC).Format("Jan 2006")
}

func mapToSummaryResponse(s ledger.Summary) ledger.SummaryResponse {
	resp := ledger.SummaryResponse{
		Filter: ledger.FilterResponse{
			Department: s.Filter.DepartmentLabel(),
			Year:       s.Filter.YearLabel(),
			Window:     int(s.Window),
		},
		RecordCount:   s.RecordCount,
		TotalPaid:     money.String(s.TotalPaid),
		AverageSalary: money.String(s.AverageSalary),
		Display: ledger.SummaryDisplay{
			TotalPaid:     money.USD(s.TotalPaid),
			AverageSalary: money.USD(s.AverageSalary),
		},
		Departments:  make([]ledger.DepartmentTotalResponse, 0, len(s.Departments)),
		MonthlyTrend: make([]ledger.TrendPointResponse, 0, len(s.Trend)),
		Histogram:    make([]ledger.HistogramBucketResponse, 0, len(s.Histogram)),
	}

	for _, d := range s.Departments {
		resp.Departments = append(resp.Departments, ledger.DepartmentTotalResponse{
			Department: d.Department,
			Total:      money.String(d.Total),
			Display:    money.USD(d.Total),
			Count:      d.Count,
		})
	}
	for _, p := range s.Trend {
		resp.MonthlyTrend = append(resp.MonthlyTrend, ledger.TrendPointResponse{
			Month:   p.Period.String(),
			Label:   trendLabel(p.Period),
			Total:   money.String(p.Total),
			Display: money.USD(p.Total),
		})
	}
	for _, b := range s.Histogram {
		resp.Histogram = append(resp.Histogram, ledger.HistogramBucketResponse{Range: b.Label, Count: b.Count})
	}
	return resp
}

// ========== EXPORT ROWS ==========

var payslipHeader = []string{
	"Payslip ID", "Employee ID", "Employee Name", "Department", "Period",
	"Base Salary", "Gross Salary", "Tax", "Total Deductions", "Net Salary", "Warnings",
}

// cell converts an amount for a spreadsheet cell, rounded to cents.
func cell(d decimal.Decimal) float64 {
	f, _ := money.Round(d).Float64()
	return f
}

func summaryRows(s ledger.Summary) [][]any {
	return [][]any{
		{"Department", s.Filter.DepartmentLabel()},
		{"Year", s.Filter.YearLabel()},
		{"Payslips", s.RecordCount},
		{"Total Paid", cell(s.TotalPaid)},
		{"Average Net Salary", cell(s.AverageSalary)},
	}
}

// departmentRows lists every known department, with zero totals for those outside the summary.
func departmentRows(s ledger.Summary, known []string) [][]any {
	totals := make(map[string]ledger.DepartmentTotal, len(s.Departments))
	for _, d := range s.Departments {
		totals[d.Department] = d
	}

	rows := make([][]any, 0, len(known)+1)
	for _, d := range s.Departments {
		rows = append(rows, []any{d.Department, d.Count, cell(d.Total)})
	}
	if s.Filter.Department != "" {
		return rows
	}
	for _, name := range known {
		if _, ok := totals[name]; !ok {
			rows = append(rows, []any{name, 0, 0.0})
		}
	}
	return rows
}

func trendRows(s ledger.Summary) [][]any {
	rows := make([][]any, 0, len(s.Trend))
	for _, p := range s.Trend {
		rows = append(rows, []any{trendLabel(p.Period), cell(p.Total)})
	}
	return rows
}

func histogramRows(s ledger.Summary) [][]any {
	rows := make([][]any, 0, len(s.Histogram))
	for _, b := range s.Histogram {
		rows = append(rows, []any{b.Label, b.Count})
	}
	return rows
}

func payslipRows(records []payroll.PayslipRecord, filter ledger.Filter) [][]any {
	rows := [][]any{}
	for _, r := range records {
		if !matches(r, filter) {
			continue
		}
		warnings := ""
		for i, w := range r.Warnings {
			if i > 0 {
				warnings += ", "
			}
			warnings += string(w)
		}
		rows = append(rows, []any{
			r.ID, r.EmployeeID, r.EmployeeName, departmentName(r.Department), r.Period.String(),
			cell(r.BaseSalary), cell(r.GrossSalary), cell(r.TaxAmount), cell(r.TotalDeductions), cell(r.NetSalary), warnings,
		})
	}
	return rows
}
