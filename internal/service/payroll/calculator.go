package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Calculator turns payslip inputs into payslip records. It performs no I/O;
// the clock is only used to stamp CreatedAt.
type Calculator struct {
	now func() time.Time
}

func NewCalculator(now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{now: now}
}

// ComputePayslip validates in and derives every monetary field from it.
//
//	effectiveBonus     = bonus mode percentage ? base*bonus/100 : bonus
//	effectiveDeduction = deduction mode percentage ? base*deduction/100 : deduction
//	gross              = base + allowances + effectiveBonus
//	tax                = gross * taxRate/100
//	totalDeductions    = effectiveDeduction + tax
//	net                = gross - totalDeductions
//
// Nothing is rounded. A negative net salary is kept as is and flagged with WarningNegativeNet.
func (c *Calculator) ComputePayslip(in payroll.PayslipInput) (payroll.PayslipRecord, error) {
	if err := in.Validate(); err != nil {
		return payroll.PayslipRecord{}, err
	}

	base := in.BaseSalary.Decimal
	bonus := in.BonusMode.Apply(base, in.Bonus)
	deduction := in.DeductionMode.Apply(base, in.Deduction)
	gross := base.Add(in.Allowances).Add(bonus)
	tax := gross.Mul(in.TaxRate).Div(hundred)
	totalDeductions := deduction.Add(tax)
	net := gross.Sub(totalDeductions)

	now := c.now().UTC()
	record := payroll.PayslipRecord{
		EmployeeID:         in.EmployeeID,
		EmployeeName:       in.EmployeeName,
		Department:         in.Department,
		Period:             in.Period,
		BaseSalary:         base,
		Adjustments:        in.Adjustments,
		EffectiveBonus:     bonus,
		EffectiveDeduction: deduction,
		GrossSalary:        gross,
		TaxAmount:          tax,
		TotalDeductions:    totalDeductions,
		NetSalary:          net,
		Status:             payroll.StatusProcessed,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if net.IsNegative() {
		record.Warnings = append(record.Warnings, payroll.WarningNegativeNet)
	}

	return record, nil
}

// ComputeBulkPayslips applies the shared rules to every entry.
//
// Invalid shared rules (period or adjustments) reject the whole batch, since no entry could
// succeed. Otherwise every entry is computed independently: valid entries land in Records in
// input order and each invalid entry adds one BulkFailure carrying its input index. Once an
// employee ID has produced a record, later entries with that ID fail as duplicates; a failed
// entry does not claim its ID, so a corrected row further down still goes through.
func (c *Calculator) ComputeBulkPayslips(entries []payroll.BulkEntry, rules payroll.BulkRules) (payroll.BulkResult, error) {
	if err := rules.Validate(); err != nil {
		return payroll.BulkResult{}, err
	}

	result := payroll.BulkResult{
		Records:  make([]payroll.PayslipRecord, 0, len(entries)),
		Failures: []payroll.BulkFailure{},
	}
	seen := make(map[string]struct{}, len(entries))

	for i, entry := range entries {
		fail := func(err error) {
			result.Failures = append(result.Failures, payroll.BulkFailure{Index: i, EmployeeID: entry.EmployeeID, Err: err})
		}

		if validator.IsEmpty(entry.EmployeeID) {
			errs := validator.ValidationErrors{{Field: "employee_id", Message: "is required"}}
			if err := c.validateBase(entry); err != nil {
				errs = append(errs, err.(validator.ValidationErrors)...)
			}
			fail(errs)
			continue
		}
		if !validator.IsPathSafe(entry.EmployeeID) {
			fail(validator.ValidationErrors{{Field: "employee_id", Message: payroll.EmployeeIDUnsafeMessage}})
			continue
		}
		if _, dup := seen[entry.EmployeeID]; dup {
			fail(payroll.ErrDuplicateBulkEntry)
			continue
		}

		record, err := c.ComputePayslip(payroll.PayslipInput{
			EmployeeID:   entry.EmployeeID,
			EmployeeName: entry.EmployeeName,
			Department:   entry.Department,
			Period:       rules.Period,
			BaseSalary:   entry.BaseSalary,
			Adjustments:  rules.Adjustments,
		})
		if err != nil {
			fail(err)
			continue
		}
		seen[entry.EmployeeID] = struct{}{}
		result.Records = append(result.Records, record)
	}

	return result, nil
}

func (c *Calculator) validateBase(entry payroll.BulkEntry) error {
	return payroll.PayslipInput{BaseSalary: entry.BaseSalary}.Validate()
}
