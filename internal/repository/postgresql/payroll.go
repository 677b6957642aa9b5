package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payslipRepositoryImpl struct {
	db *database.DB
}

func NewPayslipRepository(db *database.DB) payroll.PayslipRepository {
	return &payslipRepositoryImpl{db: db}
}

const payslipColumns = `
	id, employee_id, employee_name, department, period_year, period_month, base_salary,
	allowances, bonus, bonus_mode, deduction, deduction_mode, tax_rate, notes,
	effective_bonus, effective_deduction, gross_salary, tax_amount, total_deductions, net_salary,
	status, warnings, document_url, created_at, updated_at
`

// Upsert stores a payslip. A second payslip for the same employee and period replaces the first
// one and keeps its id; the stored row is returned.
func (r *payslipRepositoryImpl) Upsert(ctx context.Context, record payroll.PayslipRecord) (payroll.PayslipRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payslips (
			id, employee_id, employee_name, department, period_year, period_month, base_salary,
			allowances, bonus, bonus_mode, deduction, deduction_mode, tax_rate, notes,
			effective_bonus, effective_deduction, gross_salary, tax_amount, total_deductions, net_salary,
			status, warnings, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (employee_id, period_year, period_month) DO UPDATE SET
			employee_name = EXCLUDED.employee_name,
			department = EXCLUDED.department,
			base_salary = EXCLUDED.base_salary,
			allowances = EXCLUDED.allowances,
			bonus = EXCLUDED.bonus,
			bonus_mode = EXCLUDED.bonus_mode,
			deduction = EXCLUDED.deduction,
			deduction_mode = EXCLUDED.deduction_mode,
			tax_rate = EXCLUDED.tax_rate,
			notes = EXCLUDED.notes,
			effective_bonus = EXCLUDED.effective_bonus,
			effective_deduction = EXCLUDED.effective_deduction,
			gross_salary = EXCLUDED.gross_salary,
			tax_amount = EXCLUDED.tax_amount,
			total_deductions = EXCLUDED.total_deductions,
			net_salary = EXCLUDED.net_salary,
			status = EXCLUDED.status,
			warnings = EXCLUDED.warnings,
			document_url = NULL,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + payslipColumns

	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = updatedAt
	}

	stored, err := scanPayslip(q.QueryRow(ctx, query,
		record.ID, record.EmployeeID, record.EmployeeName, record.Department,
		record.Period.Year, int(record.Period.Month), record.BaseSalary,
		record.Allowances, record.Bonus, record.BonusMode.String(),
		record.Deduction, record.DeductionMode.String(), record.TaxRate, record.Notes,
		record.EffectiveBonus, record.EffectiveDeduction, record.GrossSalary,
		record.TaxAmount, record.TotalDeductions, record.NetSalary,
		string(record.Status), warningStrings(record.Warnings), createdAt, updatedAt,
	))
	if err != nil {
		return payroll.PayslipRecord{}, fmt.Errorf("failed to upsert payslip: %w", err)
	}
	return stored, nil
}

func (r *payslipRepositoryImpl) GetByID(ctx context.Context, id string) (payroll.PayslipRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payslipColumns + ` FROM payslips WHERE id = $1`

	record, err := scanPayslip(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayslipRecord{}, payroll.ErrPayslipNotFound
		}
		return payroll.PayslipRecord{}, fmt.Errorf("failed to get payslip: %w", err)
	}
	return record, nil
}

func (r *payslipRepositoryImpl) List(ctx context.Context, filter payroll.PayslipFilter) ([]payroll.PayslipRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := ` FROM payslips WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.EmployeeID != nil {
		baseQuery += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.Department != nil {
		baseQuery += fmt.Sprintf(" AND LOWER(department) = LOWER($%d)", argIdx)
		args = append(args, *filter.Department)
		argIdx++
	}
	if filter.Year != nil {
		baseQuery += fmt.Sprintf(" AND period_year = $%d", argIdx)
		args = append(args, *filter.Year)
		argIdx++
	}
	if filter.Period != nil {
		baseQuery += fmt.Sprintf(" AND period_year = $%d AND period_month = $%d", argIdx, argIdx+1)
		args = append(args, filter.Period.Year, int(filter.Period.Month))
		argIdx += 2
	}

	// Count query
	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payslips: %w", err)
	}

	filter.Normalize()
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`SELECT %s %s
		ORDER BY period_year DESC, period_month DESC, employee_name ASC
		LIMIT $%d OFFSET $%d`, payslipColumns, baseQuery, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	records, err := queryPayslips(ctx, q, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payslips: %w", err)
	}
	return records, totalCount, nil
}

func (r *payslipRepositoryImpl) SetDocumentURL(ctx context.Context, id string, url string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE payslips SET document_url = $1, updated_at = NOW() WHERE id = $2`, url, id)
	if err != nil {
		return fmt.Errorf("failed to set payslip document url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPayslipNotFound
	}
	return nil
}

// ListWithoutDocument returns the oldest payslips that still lack a rendered document.
func (r *payslipRepositoryImpl) ListWithoutDocument(ctx context.Context, limit int) ([]payroll.PayslipRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payslipColumns + `
		FROM payslips
		WHERE document_url IS NULL
		ORDER BY created_at ASC
		LIMIT $1`

	records, err := queryPayslips(ctx, q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips without document: %w", err)
	}
	return records, nil
}

func queryPayslips(ctx context.Context, q database.Querier, query string, args ...interface{}) ([]payroll.PayslipRecord, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []payroll.PayslipRecord{}
	for rows.Next() {
		record, err := scanPayslip(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanPayslip(row pgx.Row) (payroll.PayslipRecord, error) {
	var (
		rec                     payroll.PayslipRecord
		month                   int
		bonusMode, deductionMod string
		status                  string
		warnings                []string
	)
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.EmployeeName, &rec.Department, &rec.Period.Year, &month, &rec.BaseSalary,
		&rec.Allowances, &rec.Bonus, &bonusMode, &rec.Deduction, &deductionMod, &rec.TaxRate, &rec.Notes,
		&rec.EffectiveBonus, &rec.EffectiveDeduction, &rec.GrossSalary, &rec.TaxAmount, &rec.TotalDeductions, &rec.NetSalary,
		&status, &warnings, &rec.DocumentURL, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return payroll.PayslipRecord{}, err
	}

	rec.Period.Month = time.Month(month)
	rec.Status = payroll.Status(status)
	if rec.BonusMode, err = payroll.ParseMode(bonusMode); err != nil {
		return payroll.PayslipRecord{}, err
	}
	if rec.DeductionMode, err = payroll.ParseMode(deductionMod); err != nil {
		return payroll.PayslipRecord{}, err
	}
	for _, w := range warnings {
		rec.Warnings = append(rec.Warnings, payroll.Warning(w))
	}
	return rec, nil
}

func warningStrings(warnings []payroll.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, string(w))
	}
	return out
}
