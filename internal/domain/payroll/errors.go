package payroll

import "errors"

var (
	ErrPayslipNotFound      = errors.New("payslip not found")
	ErrDocumentNotAvailable = errors.New("payslip document not available yet")
	ErrInvalidPeriod        = errors.New("invalid payroll period")
	ErrInvalidMode          = errors.New("invalid adjustment mode")
	ErrEmptyBatch           = errors.New("bulk run has no entries")
	ErrNoEmployeesFound     = errors.New("no active employees found for department")
	ErrInvalidSheet         = errors.New("invalid payroll spreadsheet")
	ErrForbiddenPayslip     = errors.New("payslip belongs to another employee")
	ErrDuplicateBulkEntry   = errors.New("employee appears more than once in the bulk run")
)
