package user

import "errors"

var (
	ErrMissingClaims           = errors.New("token is missing user claims")
	ErrAdminAccessRequired     = errors.New("admin access required")
	ErrEmployeeIDRequired      = errors.New("employee ID is required")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)
