package payroll

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Mode says how a bonus or deduction amount is applied. The zero value is Fixed.
// Only the two package values exist; there is no way to build a third one.
type Mode struct {
	percentage bool
}

var (
	Fixed      = Mode{}
	Percentage = Mode{percentage: true}
)

func (m Mode) IsPercentage() bool {
	return m.percentage
}

func (m Mode) String() string {
	if m.percentage {
		return "percentage"
	}
	return "fixed"
}

// Apply returns the effective amount of an adjustment for the given base salary.
func (m Mode) Apply(base, amount decimal.Decimal) decimal.Decimal {
	if m.percentage {
		return base.Mul(amount).Div(hundred)
	}
	return amount
}

// ParseMode accepts "fixed", "percentage" (and the "percent"/"%" shorthands).
// An empty string yields Fixed.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fixed", "amount":
		return Fixed, nil
	case "percentage", "percent", "%":
		return Percentage, nil
	default:
		return Fixed, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Period is a pay period, one calendar month.
type Period struct {
	Year  int
	Month time.Month
}

func NewPeriod(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses "2006-01".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	return NewPeriod(t), nil
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

func (p Period) Valid() bool {
	return p.Year >= 1900 && p.Year <= 9999 && p.Month >= time.January && p.Month <= time.December
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start returns the first instant of the period in loc.
func (p Period) Start(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
}

// AddMonths shifts the period by n months (n may be negative).
func (p Period) AddMonths(n int) Period {
	return NewPeriod(p.Start(time.UTC).AddDate(0, n, 0))
}

func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Adjustments are the rules shared by one payslip or by every entry of a bulk run.
// The zero value is the default configuration: no allowances, no bonus, no deduction,
// both modes Fixed and a 0% tax rate.
type Adjustments struct {
	Allowances    decimal.Decimal
	Bonus         decimal.Decimal
	BonusMode     Mode
	Deduction     decimal.Decimal
	DeductionMode Mode
	TaxRate       decimal.Decimal // percent, 0-100
	Notes         string
}

// PayslipInput is everything needed to compute one payslip.
type PayslipInput struct {
	EmployeeID   string
	EmployeeName string
	Department   string
	Period       Period
	BaseSalary   decimal.NullDecimal // Valid=false means missing
	Adjustments
}

// Status enum
type Status string

const (
	StatusProcessed Status = "processed"
)

// Warning flags a computed payslip that needs a human look. Warnings never block persistence.
type Warning string

const (
	WarningNegativeNet Warning = "negative_net_salary"
)

// PayslipRecord is a computed payslip. Monetary fields are exact; rounding happens only when presented.
type PayslipRecord struct {
	ID           string
	EmployeeID   string
	EmployeeName string
	Department   string
	Period       Period
	BaseSalary   decimal.Decimal
	Adjustments

	EffectiveBonus     decimal.Decimal
	EffectiveDeduction decimal.Decimal
	GrossSalary        decimal.Decimal
	TaxAmount          decimal.Decimal
	TotalDeductions    decimal.Decimal
	NetSalary          decimal.Decimal

	Status      Status
	Warnings    []Warning
	DocumentURL *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r PayslipRecord) HasWarning(w Warning) bool {
	for _, got := range r.Warnings {
		if got == w {
			return true
		}
	}
	return false
}

// BulkEntry is one employee of a bulk run.
type BulkEntry struct {
	EmployeeID   string
	EmployeeName string
	Department   string
	BaseSalary   decimal.NullDecimal
}

// BulkRules are applied to every entry of a bulk run.
type BulkRules struct {
	Period Period
	Adjustments
}

// BulkFailure records an entry that could not be computed or stored.
type BulkFailure struct {
	Index      int
	EmployeeID string
	Err        error
}

func (f BulkFailure) Error() string {
	return fmt.Sprintf("entry %d (employee %q): %v", f.Index, f.EmployeeID, f.Err)
}

func (f BulkFailure) Unwrap() error {
	return f.Err
}

// BulkResult holds the records of every valid entry, in input order, and one failure per invalid entry.
// An invalid entry never prevents the others from being computed.
type BulkResult struct {
	Records  []PayslipRecord
	Failures []BulkFailure
}
