package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/pdf"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/storage"
	"github.com/shopspring/decimal"
)

const (
	contentType = "application/pdf"
	// urlExpiry is the validity asked of signed URLs; GCS caps V4 signatures at 7 days.
	urlExpiry = 7 * 24 * time.Hour
)

type DocumentService interface {
	// Generate renders the payslip PDF, stores it and returns its retrieval URL
	Generate(ctx context.Context, record payroll.PayslipRecord) (string, error)

	// Open streams a stored payslip PDF; the caller closes it
	Open(ctx context.Context, record payroll.PayslipRecord) (io.ReadCloser, error)
}

type documentServiceImpl struct {
	storage storage.FileStorage
	issuer  string
	now     func() time.Time
}

func NewDocumentService(storage storage.FileStorage, issuer string, now func() time.Time) DocumentService {
	if now == nil {
		now = time.Now
	}
	return &documentServiceImpl{
		storage: storage,
		issuer:  issuer,
		now:     now,
	}
}

// Key returns the storage key of a payslip document: payslips/<employee_id>/<yyyy-mm>.pdf.
// Re-rendering the same period overwrites the previous file.
func Key(record payroll.PayslipRecord) string {
	return path.Join("payslips", url.PathEscape(record.EmployeeID), record.Period.String()+".pdf")
}

// FileName is the download name offered to clients.
func FileName(record payroll.PayslipRecord) string {
	return fmt.Sprintf("payslip-%s-%s.pdf", url.PathEscape(record.EmployeeID), record.Period.String())
}

func (s *documentServiceImpl) Generate(ctx context.Context, record payroll.PayslipRecord) (string, error) {
	var buf bytes.Buffer
	if err := pdf.RenderPayslip(&buf, s.toDocument(record)); err != nil {
		return "", fmt.Errorf("failed to render payslip %s: %w", record.ID, err)
	}

	key, err := s.storage.Upload(ctx, &buf, Key(record), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload payslip %s: %w", record.ID, err)
	}

	url, err := s.storage.GetURL(ctx, key, urlExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to get payslip url: %w", err)
	}
	return url, nil
}

func (s *documentServiceImpl) Open(ctx context.Context, record payroll.PayslipRecord) (io.ReadCloser, error) {
	return s.storage.Download(ctx, Key(record))
}

func (s *documentServiceImpl) toDocument(r payroll.PayslipRecord) pdf.Payslip {
	earnings := []pdf.Line{
		{Label: "Base salary", Amount: money.USD(r.BaseSalary)},
		{Label: "Allowances", Amount: money.USD(r.Allowances)},
		{Label: adjustmentLabel("Bonus", r.BonusMode, r.Bonus), Amount: money.USD(r.EffectiveBonus)},
	}
	deductions := []pdf.Line{
		{Label: adjustmentLabel("Deduction", r.DeductionMode, r.Deduction), Amount: money.USD(r.EffectiveDeduction)},
		{Label: fmt.Sprintf("Tax (%s%%)", r.TaxRate.String()), Amount: money.USD(r.TaxAmount)},
	}

	warnings := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, warningText(w))
	}

	department := r.Department
	if department == "" {
		department = "Unassigned"
	}

	return pdf.Payslip{
		Issuer:       s.issuer,
		EmployeeID:   r.EmployeeID,
		EmployeeName: r.EmployeeName,
		Department:   department,
		Period:       r.Period.Start(time.UTC).Format("January 2006"),
		Earnings:     earnings,
		Deductions:   deductions,
		GrossSalary:  money.USD(r.GrossSalary),
		TotalDeduct:  money.USD(r.TotalDeductions),
		NetSalary:    money.USD(r.NetSalary),
		Notes:        r.Notes,
		Warnings:     warnings,
		GeneratedAt:  s.now(),
	}
}

func adjustmentLabel(name string, mode payroll.Mode, amount decimal.Decimal) string {
	if mode.IsPercentage() {
		return fmt.Sprintf("%s (%s%%)", name, amount.String())
	}
	return name
}

func warningText(w payroll.Warning) string {
	switch w {
	case payroll.WarningNegativeNet:
		return "Net salary is negative: deductions and tax exceed gross pay."
	default:
		return string(w)
	}
}
