package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== VALIDATION ==========

// Validate checks the inputs the calculator depends on.
func (in PayslipInput) Validate() error {
	var errs validator.ValidationErrors

	switch {
	case !in.BaseSalary.Valid:
		errs.Add("base_salary", "is required")
	case !validator.IsNonNegative(in.BaseSalary.Decimal):
		errs.Add("base_salary", "must be non-negative")
	}
	in.Adjustments.validate(&errs)

	return errs.OrNil()
}

// Validate checks the shared rules of a bulk run.
func (r BulkRules) Validate() error {
	var errs validator.ValidationErrors

	if !r.Period.Valid() {
		errs.Add("period", "must be a valid YYYY-MM month")
	}
	r.Adjustments.validate(&errs)

	return errs.OrNil()
}

// Validate checks adjustment rules on their own.
func (a Adjustments) Validate() error {
	var errs validator.ValidationErrors
	a.validate(&errs)
	return errs.OrNil()
}

func (a Adjustments) validate(errs *validator.ValidationErrors) {
	if !validator.IsNonNegative(a.Allowances) {
		errs.Add("allowances", "must be non-negative")
	}
	if !validator.IsNonNegative(a.Bonus) {
		errs.Add("bonus", "must be non-negative")
	}
	if !validator.IsNonNegative(a.Deduction) {
		errs.Add("deduction", "must be non-negative")
	}
	if !validator.IsInRange(a.TaxRate, decimal.Zero, hundred) {
		errs.Add("tax_rate", "must be between 0 and 100")
	}
}

// EmployeeIDUnsafeMessage rejects ids that cannot name a document folder.
const EmployeeIDUnsafeMessage = `must not contain "/", "\" or ".."`

// ========== REQUEST DTOs ==========

// AdjustmentsRequest is the form payload for adjustment rules. Every field is optional;
// DefaultAdjustments lists what an omitted field means.
type AdjustmentsRequest struct {
	Allowances    *decimal.Decimal `json:"allowances,omitempty"`
	Bonus         *decimal.Decimal `json:"bonus,omitempty"`
	BonusMode     *Mode            `json:"bonus_mode,omitempty"`
	Deduction     *decimal.Decimal `json:"deduction,omitempty"`
	DeductionType *Mode            `json:"deduction_type,omitempty"`
	TaxRate       *decimal.Decimal `json:"tax_rate,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

// DefaultAdjustments returns the configuration used for omitted fields.
func DefaultAdjustments() Adjustments {
	return Adjustments{
		Allowances:    decimal.Zero,
		Bonus:         decimal.Zero,
		BonusMode:     Fixed,
		Deduction:     decimal.Zero,
		DeductionMode: Fixed,
		TaxRate:       decimal.Zero,
	}
}

func (r AdjustmentsRequest) ToAdjustments() Adjustments {
	a := DefaultAdjustments()
	if r.Allowances != nil {
		a.Allowances = *r.Allowances
	}
	if r.Bonus != nil {
		a.Bonus = *r.Bonus
	}
	if r.BonusMode != nil {
		a.BonusMode = *r.BonusMode
	}
	if r.Deduction != nil {
		a.Deduction = *r.Deduction
	}
	if r.DeductionType != nil {
		a.DeductionMode = *r.DeductionType
	}
	if r.TaxRate != nil {
		a.TaxRate = *r.TaxRate
	}
	a.Notes = r.Notes
	return a
}

type CreatePayslipRequest struct {
	EmployeeID   string           `json:"employee_id"`
	EmployeeName string           `json:"employee_name"`
	Department   string           `json:"department"`
	Period       string           `json:"period"` // YYYY-MM
	BaseSalary   *decimal.Decimal `json:"base_salary"`
	AdjustmentsRequest
}

func (r *CreatePayslipRequest) Validate() error {
	var errs validator.ValidationErrors

	switch {
	case validator.IsEmpty(r.EmployeeID):
		errs.Add("employee_id", "is required")
	case !validator.IsPathSafe(r.EmployeeID):
		errs.Add("employee_id", EmployeeIDUnsafeMessage)
	}
	if p, err := ParsePeriod(r.Period); err != nil || !p.Valid() {
		errs.Add("period", "must be a valid YYYY-MM month")
	}
	if err := r.ToInput().Validate(); err != nil {
		errs = append(errs, err.(validator.ValidationErrors)...)
	}

	return errs.OrNil()
}

// ToInput converts the request, applying defaults. An unparsable period becomes the zero Period.
func (r *CreatePayslipRequest) ToInput() PayslipInput {
	period, _ := ParsePeriod(r.Period)
	in := PayslipInput{
		EmployeeID:   r.EmployeeID,
		EmployeeName: r.EmployeeName,
		Department:   r.Department,
		Period:       period,
		Adjustments:  r.AdjustmentsRequest.ToAdjustments(),
	}
	if r.BaseSalary != nil {
		in.BaseSalary = decimal.NewNullDecimal(*r.BaseSalary)
	}
	return in
}

type BulkEntryRequest struct {
	EmployeeID   string           `json:"employee_id"`
	EmployeeName string           `json:"employee_name"`
	Department   string           `json:"department"`
	BaseSalary   *decimal.Decimal `json:"base_salary"`
}

// BulkPayslipRequest runs payroll for the listed entries, or for every active employee of
// Department when Entries is empty.
type BulkPayslipRequest struct {
	Period     string             `json:"period"`
	Department string             `json:"department,omitempty"`
	Entries    []BulkEntryRequest `json:"entries,omitempty"`
	AdjustmentsRequest
}

func (r *BulkPayslipRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.Entries) == 0 && validator.IsEmpty(r.Department) {
		errs.Add("entries", "entries or department is required")
	}
	if err := r.Rules().Validate(); err != nil {
		errs = append(errs, err.(validator.ValidationErrors)...)
	}

	return errs.OrNil()
}

func (r *BulkPayslipRequest) Rules() BulkRules {
	period, _ := ParsePeriod(r.Period)
	return BulkRules{Period: period, Adjustments: r.AdjustmentsRequest.ToAdjustments()}
}

func (r *BulkPayslipRequest) ToEntries() []BulkEntry {
	entries := make([]BulkEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		entry := BulkEntry{
			EmployeeID:   e.EmployeeID,
			EmployeeName: e.EmployeeName,
			Department:   e.Department,
		}
		if e.BaseSalary != nil {
			entry.BaseSalary = decimal.NewNullDecimal(*e.BaseSalary)
		}
		entries = append(entries, entry)
	}
	return entries
}

type PayslipFilter struct {
	EmployeeID *string
	Department *string
	Year       *int
	Period     *Period
	Page       int
	Limit      int
}

// Normalize clamps paging values.
func (f *PayslipFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

// ========== RESPONSE DTOs ==========

// PayslipDisplay holds presentation strings, e.g. "$1,234.56".
type PayslipDisplay struct {
	BaseSalary      string `json:"base_salary"`
	GrossSalary     string `json:"gross_salary"`
	TaxAmount       string `json:"tax_amount"`
	TotalDeductions string `json:"total_deductions"`
	NetSalary       string `json:"net_salary"`
}

type PayslipResponse struct {
	ID                 string         `json:"id,omitempty"`
	EmployeeID         string         `json:"employee_id"`
	EmployeeName       string         `json:"employee_name"`
	Department         string         `json:"department"`
	Period             string         `json:"period"`
	BaseSalary         string         `json:"base_salary"`
	Allowances         string         `json:"allowances"`
	Bonus              string         `json:"bonus"`
	BonusMode          Mode           `json:"bonus_mode"`
	Deduction          string         `json:"deduction"`
	DeductionType      Mode           `json:"deduction_type"`
	TaxRate            string         `json:"tax_rate"`
	EffectiveBonus     string         `json:"effective_bonus"`
	EffectiveDeduction string         `json:"effective_deduction"`
	GrossSalary        string         `json:"gross_salary"`
	TaxAmount          string         `json:"tax_amount"`
	TotalDeductions    string         `json:"total_deductions"`
	NetSalary          string         `json:"net_salary"`
	Status             string         `json:"status"`
	Warnings           []string       `json:"warnings,omitempty"`
	DocumentURL        *string        `json:"document_url,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	Display            PayslipDisplay `json:"display"`
}

type ListPayslipResponse struct {
	Data       []PayslipResponse `json:"data"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

type BulkFailureResponse struct {
	Index      int               `json:"index"`
	Line       int               `json:"line,omitempty"` // sheet row, imports only
	EmployeeID string            `json:"employee_id"`
	Error      string            `json:"error"`
	Details    map[string]string `json:"details,omitempty"`
}

type BulkPayslipResponse struct {
	Period    string                `json:"period"`
	Processed int                   `json:"processed"`
	Failed    int                   `json:"failed"`
	Records   []PayslipResponse     `json:"records"`
	Failures  []BulkFailureResponse `json:"failures"`
}

// BulkCompletedEvent is streamed once a bulk run has been stored.
type BulkCompletedEvent struct {
	Period    string `json:"period"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
}
