package ledger

import (
	"context"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
)

// LedgerRepository reads the persisted payslip collection.
type LedgerRepository interface {
	// ListPayslips returns every stored payslip, oldest period first.
	ListPayslips(ctx context.Context) ([]payroll.PayslipRecord, error)
	// ListDepartments returns the distinct departments, "" excluded, sorted.
	ListDepartments(ctx context.Context) ([]string, error)
}
