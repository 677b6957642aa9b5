package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is the directory entry used to seed department payroll runs.
type Employee struct {
	ID               string
	EmployeeCode     string
	FullName         string
	Department       *string
	EmploymentStatus EmploymentStatus
	BaseSalary       *decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive   EmploymentStatus = "active"
	EmploymentStatusInactive EmploymentStatus = "inactive"
)

// DepartmentName returns the department or "" when none is assigned.
func (e Employee) DepartmentName() string {
	if e.Department == nil {
		return ""
	}
	return *e.Department
}
