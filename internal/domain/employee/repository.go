package employee

import "context"

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (Employee, error)
	// ListActiveByDepartment returns active employees of a department ordered by full name.
	ListActiveByDepartment(ctx context.Context, department string) ([]Employee, error)
}
