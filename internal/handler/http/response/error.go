package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/auth"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/storage"
	"github.com/cmlabs-hris/payroll-ledger/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth and caller errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid token")
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, user.ErrMissingClaims), errors.Is(err, user.ErrEmployeeIDRequired):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrAdminAccessRequired):
		Forbidden(w, "Admin access required")
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, "Insufficient permissions")

	// Payroll domain errors
	case errors.Is(err, payroll.ErrPayslipNotFound):
		NotFound(w, "Payslip not found")
	case errors.Is(err, payroll.ErrDocumentNotAvailable):
		NotFound(w, "Payslip document not available yet")
	case errors.Is(err, payroll.ErrForbiddenPayslip):
		Forbidden(w, "Payslip belongs to another employee")
	case errors.Is(err, payroll.ErrNoEmployeesFound):
		NotFound(w, "No active employees found for department")
	case errors.Is(err, payroll.ErrInvalidSheet),
		errors.Is(err, payroll.ErrInvalidPeriod),
		errors.Is(err, payroll.ErrInvalidMode),
		errors.Is(err, payroll.ErrEmptyBatch):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrDuplicateBulkEntry):
		Conflict(w, err.Error())

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	case errors.Is(err, storage.ErrFileNotFound):
		NotFound(w, "File not found")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
