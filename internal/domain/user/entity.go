package user

type Role string

const (
	RoleAdmin    Role = "admin"    // Runs payroll and reads the whole ledger
	RoleEmployee Role = "employee" // Reads own payslips only
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// Principal is the caller identity carried by an access token.
type Principal struct {
	UserID     string
	EmployeeID string
	Role       Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// PrincipalFromClaims reads user_id, employee_id and role from token claims.
// Employees must carry an employee_id.
func PrincipalFromClaims(claims map[string]interface{}) (Principal, error) {
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return Principal{}, ErrMissingClaims
	}
	roleStr, _ := claims["role"].(string)
	role := Role(roleStr)
	if !role.Valid() {
		return Principal{}, ErrInsufficientPermissions
	}
	employeeID, _ := claims["employee_id"].(string)
	if role == RoleEmployee && employeeID == "" {
		return Principal{}, ErrEmployeeIDRequired
	}
	return Principal{UserID: userID, EmployeeID: employeeID, Role: role}, nil
}
