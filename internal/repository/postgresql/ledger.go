package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/database"
)

type ledgerRepositoryImpl struct {
	db *database.DB
}

func NewLedgerRepository(db *database.DB) ledger.LedgerRepository {
	return &ledgerRepositoryImpl{db: db}
}

// ListPayslips returns every stored payslip. Filtering happens in the aggregator so that
// unknown filter values can fall back to the whole ledger.
func (r *ledgerRepositoryImpl) ListPayslips(ctx context.Context) ([]payroll.PayslipRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payslipColumns + `
		FROM payslips
		ORDER BY period_year ASC, period_month ASC, employee_id ASC`

	records, err := queryPayslips(ctx, q, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger payslips: %w", err)
	}
	return records, nil
}

// ListDepartments returns the distinct departments that appear on payslips, blanks excluded.
func (r *ledgerRepositoryImpl) ListDepartments(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT DISTINCT department
		FROM payslips
		WHERE TRIM(department) <> ''
		ORDER BY department ASC
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	departments := []string{}
	for rows.Next() {
		var dept string
		if err := rows.Scan(&dept); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, dept)
	}
	return departments, rows.Err()
}
