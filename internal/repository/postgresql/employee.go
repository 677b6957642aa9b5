package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `id, employee_code, full_name, department, employment_status, base_salary, created_at, updated_at`

// GetByID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 AND deleted_at IS NULL`

	emp, err := scanEmployee(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee with id %s: %w", id, err)
	}
	return emp, nil
}

// ListActiveByDepartment implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListActiveByDepartment(ctx context.Context, department string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + `
		FROM employees
		WHERE LOWER(department) = LOWER($1) AND employment_status = $2 AND deleted_at IS NULL
		ORDER BY full_name ASC`

	rows, err := q.Query(ctx, query, department, string(employee.EmploymentStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees of %s: %w", department, err)
	}
	defer rows.Close()

	employees := []employee.Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var emp employee.Employee
	var status string
	err := row.Scan(
		&emp.ID, &emp.EmployeeCode, &emp.FullName, &emp.Department,
		&status, &emp.BaseSalary, &emp.CreatedAt, &emp.UpdatedAt,
	)
	emp.EmploymentStatus = employee.EmploymentStatus(status)
	return emp, err
}
