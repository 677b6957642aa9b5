package payroll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/spreadsheet"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/sse"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/storage"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/validator"
	"github.com/cmlabs-hris/payroll-ledger/internal/service/document"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Sheet columns read by ImportBulk. employee_name and department are optional.
const (
	columnEmployeeID   = "employee_id"
	columnEmployeeName = "employee_name"
	columnDepartment   = "department"
	columnBaseSalary   = "base_salary"
)

type PayrollServiceImpl struct {
	payslipRepo  payroll.PayslipRepository
	employeeRepo employee.EmployeeRepository
	calculator   *Calculator
	documents    document.DocumentService
	hub          *sse.Hub
	logger       *slog.Logger
	workers      int
}

func NewPayrollService(
	payslipRepo payroll.PayslipRepository,
	employeeRepo employee.EmployeeRepository,
	calculator *Calculator,
	documents document.DocumentService,
	hub *sse.Hub,
	logger *slog.Logger,
	workers int,
) payroll.PayrollService {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollServiceImpl{
		payslipRepo:  payslipRepo,
		employeeRepo: employeeRepo,
		calculator:   calculator,
		documents:    documents,
		hub:          hub,
		logger:       logger,
		workers:      workers,
	}
}

// Helper to get the caller from JWT context
func principalFromContext(ctx context.Context) (user.Principal, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return user.Principal{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	return user.PrincipalFromClaims(claims)
}

func requireAdmin(ctx context.Context) error {
	p, err := principalFromContext(ctx)
	if err != nil {
		return err
	}
	if !p.IsAdmin() {
		return user.ErrAdminAccessRequired
	}
	return nil
}

// ========== SINGLE PAYSLIP ==========

func (s *PayrollServiceImpl) Preview(ctx context.Context, req payroll.CreatePayslipRequest) (payroll.PayslipResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return payroll.PayslipResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.PayslipResponse{}, err
	}

	record, err := s.calculator.ComputePayslip(s.enrich(ctx, req.ToInput()))
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	return mapToPayslipResponse(record), nil
}

func (s *PayrollServiceImpl) Create(ctx context.Context, req payroll.CreatePayslipRequest) (payroll.PayslipResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return payroll.PayslipResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.PayslipResponse{}, err
	}

	record, err := s.calculator.ComputePayslip(s.enrich(ctx, req.ToInput()))
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	record.ID = uuid.NewString()

	stored, err := s.payslipRepo.Upsert(ctx, record)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	if stored.HasWarning(payroll.WarningNegativeNet) {
		s.logger.WarnContext(ctx, "payslip stored with negative net salary",
			"payslip_id", stored.ID, "employee_id", stored.EmployeeID, "period", stored.Period.String())
	}

	s.attachDocument(ctx, &stored)

	resp := mapToPayslipResponse(stored)
	s.publishPayslip(resp)
	return resp, nil
}

// enrich fills a blank employee name or department from the employee directory.
// Lookups only happen for directory ids; ad-hoc ids are taken as given.
func (s *PayrollServiceImpl) enrich(ctx context.Context, in payroll.PayslipInput) payroll.PayslipInput {
	if s.employeeRepo == nil || !validator.IsValidUUID(in.EmployeeID) {
		return in
	}
	if in.EmployeeName != "" && in.Department != "" {
		return in
	}

	emp, err := s.employeeRepo.GetByID(ctx, in.EmployeeID)
	if err != nil {
		if !errors.Is(err, employee.ErrEmployeeNotFound) {
			s.logger.WarnContext(ctx, "employee lookup failed", "employee_id", in.EmployeeID, "error", err)
		}
		return in
	}
	if in.EmployeeName == "" {
		in.EmployeeName = emp.FullName
	}
	if in.Department == "" {
		in.Department = emp.DepartmentName()
	}
	return in
}

// ========== BULK RUNS ==========

func (s *PayrollServiceImpl) RunBulk(ctx context.Context, req payroll.BulkPayslipRequest) (payroll.BulkPayslipResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return payroll.BulkPayslipResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.BulkPayslipResponse{}, err
	}

	entries := req.ToEntries()
	if len(entries) == 0 {
		var err error
		entries, err = s.departmentEntries(ctx, req.Department)
		if err != nil {
			return payroll.BulkPayslipResponse{}, err
		}
	}

	return s.runBulk(ctx, entries, req.Rules(), nil)
}

// departmentEntries seeds a bulk run with every active employee of department.
func (s *PayrollServiceImpl) departmentEntries(ctx context.Context, department string) ([]payroll.BulkEntry, error) {
	employees, err := s.employeeRepo.ListActiveByDepartment(ctx, department)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, payroll.ErrNoEmployeesFound
	}

	entries := make([]payroll.BulkEntry, 0, len(employees))
	for _, emp := range employees {
		entry := payroll.BulkEntry{
			EmployeeID:   emp.ID,
			EmployeeName: emp.FullName,
			Department:   emp.DepartmentName(),
		}
		if emp.BaseSalary != nil {
			entry.BaseSalary = decimal.NewNullDecimal(*emp.BaseSalary)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *PayrollServiceImpl) ImportBulk(ctx context.Context, sheet io.Reader, req payroll.BulkPayslipRequest) (payroll.BulkPayslipResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return payroll.BulkPayslipResponse{}, err
	}
	rules := req.Rules()
	if err := rules.Validate(); err != nil {
		return payroll.BulkPayslipResponse{}, err
	}

	rows, err := spreadsheet.ReadRows(sheet, columnEmployeeID, columnBaseSalary)
	if err != nil {
		return payroll.BulkPayslipResponse{}, fmt.Errorf("%w: %v", payroll.ErrInvalidSheet, err)
	}
	if len(rows) == 0 {
		return payroll.BulkPayslipResponse{}, payroll.ErrEmptyBatch
	}

	entries := make([]payroll.BulkEntry, len(rows))
	malformed := make(map[int]error)
	for i, row := range rows {
		entries[i] = payroll.BulkEntry{
			EmployeeID:   row.Get(columnEmployeeID),
			EmployeeName: row.Get(columnEmployeeName),
			Department:   row.Get(columnDepartment),
		}
		if entries[i].Department == "" {
			entries[i].Department = req.Department
		}

		raw := row.Get(columnBaseSalary)
		if raw == "" {
			continue
		}
		amount, ok := validator.ParseAmount(raw)
		if !ok {
			malformed[i] = validator.ValidationErrors{{Field: columnBaseSalary, Message: "must be a number"}}
			continue
		}
		entries[i].BaseSalary = decimal.NewNullDecimal(amount)
	}

	resp, err := s.runBulk(ctx, entries, rules, malformed)
	if err != nil {
		return payroll.BulkPayslipResponse{}, err
	}
	for i := range resp.Failures {
		resp.Failures[i].Line = rows[resp.Failures[i].Index].Line
	}
	return resp, nil
}

// runBulk computes, stores and renders a bulk run. Entries listed in overrides fail with the
// given error instead of the calculator's verdict. Storage failures become entry failures;
// document failures are only logged and left to the backfill job.
func (s *PayrollServiceImpl) runBulk(ctx context.Context, entries []payroll.BulkEntry, rules payroll.BulkRules, overrides map[int]error) (payroll.BulkPayslipResponse, error) {
	if len(entries) == 0 {
		return payroll.BulkPayslipResponse{}, payroll.ErrEmptyBatch
	}

	result, err := s.calculator.ComputeBulkPayslips(entries, rules)
	if err != nil {
		return payroll.BulkPayslipResponse{}, err
	}

	failed := make(map[int]bool, len(result.Failures))
	for i, f := range result.Failures {
		failed[f.Index] = true
		if err, ok := overrides[f.Index]; ok {
			result.Failures[i].Err = err
		}
	}

	stored := make([]payroll.PayslipRecord, 0, len(result.Records))
	next := 0
	for idx := range entries {
		if failed[idx] {
			continue
		}
		record := result.Records[next]
		next++

		record.ID = uuid.NewString()
		saved, err := s.payslipRepo.Upsert(ctx, record)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to store bulk payslip", "employee_id", record.EmployeeID, "error", err)
			result.Failures = append(result.Failures, payroll.BulkFailure{Index: idx, EmployeeID: record.EmployeeID, Err: err})
			continue
		}
		stored = append(stored, saved)
	}
	sort.SliceStable(result.Failures, func(i, j int) bool {
		return result.Failures[i].Index < result.Failures[j].Index
	})

	s.renderDocuments(ctx, stored)

	resp := payroll.BulkPayslipResponse{
		Period:    rules.Period.String(),
		Processed: len(stored),
		Failed:    len(result.Failures),
		Records:   make([]payroll.PayslipResponse, 0, len(stored)),
		Failures:  make([]payroll.BulkFailureResponse, 0, len(result.Failures)),
	}
	for _, record := range stored {
		r := mapToPayslipResponse(record)
		resp.Records = append(resp.Records, r)
		s.publishPayslip(r)
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, mapToBulkFailureResponse(f))
	}

	s.logger.InfoContext(ctx, "bulk payroll run completed",
		"period", resp.Period, "processed", resp.Processed, "failed", resp.Failed)
	s.publish([]string{ledger.TopicLedger}, ledger.EventBulkRunCompleted, payroll.BulkCompletedEvent{
		Period:    resp.Period,
		Processed: resp.Processed,
		Failed:    resp.Failed,
	})

	return resp, nil
}

// ========== QUERIES ==========

func (s *PayrollServiceImpl) GetByID(ctx context.Context, id string) (payroll.PayslipResponse, error) {
	record, err := s.getAuthorized(ctx, id)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	return mapToPayslipResponse(record), nil
}

// List returns payslips newest period first. Employees only see their own payslips.
func (s *PayrollServiceImpl) List(ctx context.Context, filter payroll.PayslipFilter) (payroll.ListPayslipResponse, error) {
	p, err := principalFromContext(ctx)
	if err != nil {
		return payroll.ListPayslipResponse{}, err
	}
	if !p.IsAdmin() {
		employeeID := p.EmployeeID
		filter.EmployeeID = &employeeID
	}
	filter.Normalize()

	records, total, err := s.payslipRepo.List(ctx, filter)
	if err != nil {
		return payroll.ListPayslipResponse{}, err
	}

	resp := payroll.ListPayslipResponse{
		Data:       make([]payroll.PayslipResponse, 0, len(records)),
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	for _, record := range records {
		resp.Data = append(resp.Data, mapToPayslipResponse(record))
	}
	return resp, nil
}

func (s *PayrollServiceImpl) OpenDocument(ctx context.Context, id string) (io.ReadCloser, string, error) {
	record, err := s.getAuthorized(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if record.DocumentURL == nil {
		return nil, "", payroll.ErrDocumentNotAvailable
	}

	rc, err := s.documents.Open(ctx, record)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, "", payroll.ErrDocumentNotAvailable
		}
		return nil, "", err
	}
	return rc, document.FileName(record), nil
}

func (s *PayrollServiceImpl) getAuthorized(ctx context.Context, id string) (payroll.PayslipRecord, error) {
	p, err := principalFromContext(ctx)
	if err != nil {
		return payroll.PayslipRecord{}, err
	}
	if !validator.IsValidUUID(id) {
		return payroll.PayslipRecord{}, payroll.ErrPayslipNotFound
	}

	record, err := s.payslipRepo.GetByID(ctx, id)
	if err != nil {
		return payroll.PayslipRecord{}, err
	}
	if !p.IsAdmin() && record.EmployeeID != p.EmployeeID {
		return payroll.PayslipRecord{}, payroll.ErrForbiddenPayslip
	}
	return record, nil
}

// ========== DOCUMENTS ==========

// BackfillDocuments runs without a caller identity; it is meant for the scheduler.
func (s *PayrollServiceImpl) BackfillDocuments(ctx context.Context, limit int) (int, error) {
	records, err := s.payslipRepo.ListWithoutDocument(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	rendered := s.renderDocuments(ctx, records)
	return rendered, ctx.Err()
}

// attachDocument renders one payslip. A failure leaves DocumentURL nil for the backfill job.
func (s *PayrollServiceImpl) attachDocument(ctx context.Context, record *payroll.PayslipRecord) bool {
	url, err := s.documents.Generate(ctx, *record)
	if err == nil {
		err = s.payslipRepo.SetDocumentURL(ctx, record.ID, url)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "payslip document not rendered", "payslip_id", record.ID, "error", err)
		return false
	}

	record.DocumentURL = &url
	s.publish(
		[]string{ledger.TopicLedger, ledger.EmployeeTopic(record.EmployeeID)},
		ledger.EventDocumentReady,
		map[string]string{"payslip_id": record.ID, "document_url": url},
	)
	return true
}

// renderDocuments renders records with at most s.workers documents in flight and returns
// how many succeeded. records is updated in place.
func (s *PayrollServiceImpl) renderDocuments(ctx context.Context, records []payroll.PayslipRecord) int {
	var rendered atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range records {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if s.attachDocument(gctx, &records[i]) {
				rendered.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(rendered.Load())
}

// ========== EVENTS ==========

func (s *PayrollServiceImpl) publishPayslip(resp payroll.PayslipResponse) {
	s.publish([]string{ledger.TopicLedger, ledger.EmployeeTopic(resp.EmployeeID)}, ledger.EventPayslipCreated, resp)
}

func (s *PayrollServiceImpl) publish(topics []string, event string, data any) {
	if s.hub == nil {
		return
	}
	s.hub.PublishToMany(topics, sse.Event{Event: event, Data: data})
}

// ========== MAPPING ==========

func mapToPayslipResponse(r payroll.PayslipRecord) payroll.PayslipResponse {
	warnings := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, string(w))
	}

	return payroll.PayslipResponse{
		ID:                 r.ID,
		EmployeeID:         r.EmployeeID,
		EmployeeName:       r.EmployeeName,
		Department:         r.Department,
		Period:             r.Period.String(),
		BaseSalary:         money.String(r.BaseSalary),
		Allowances:         money.String(r.Allowances),
		Bonus:              r.Bonus.String(),
		BonusMode:          r.BonusMode,
		Deduction:          r.Deduction.String(),
		DeductionType:      r.DeductionMode,
		TaxRate:            r.TaxRate.String(),
		EffectiveBonus:     money.String(r.EffectiveBonus),
		EffectiveDeduction: money.String(r.EffectiveDeduction),
		GrossSalary:        money.String(r.GrossSalary),
		TaxAmount:          money.String(r.TaxAmount),
		TotalDeductions:    money.String(r.TotalDeductions),
		NetSalary:          money.String(r.NetSalary),
		Status:             string(r.Status),
		Warnings:           warnings,
		DocumentURL:        r.DocumentURL,
		Notes:              r.Notes,
		CreatedAt:          r.CreatedAt,
		Display: payroll.PayslipDisplay{
			BaseSalary:      money.USD(r.BaseSalary),
			GrossSalary:     money.USD(r.GrossSalary),
			TaxAmount:       money.USD(r.TaxAmount),
			TotalDeductions: money.USD(r.TotalDeductions),
			NetSalary:       money.USD(r.NetSalary),
		},
	}
}

func mapToBulkFailureResponse(f payroll.BulkFailure) payroll.BulkFailureResponse {
	resp := payroll.BulkFailureResponse{
		Index:      f.Index,
		EmployeeID: f.EmployeeID,
		Error:      f.Err.Error(),
	}
	var verrs validator.ValidationErrors
	if errors.As(f.Err, &verrs) {
		resp.Error = "validation failed"
		resp.Details = verrs.ToMap()
	}
	return resp
}
