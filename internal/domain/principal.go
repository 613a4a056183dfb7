package domain

// Role identifies the kind of actor issuing a request.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAgent    Role = "AGENT"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated actor behind a request.
type Principal struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the principal carries administrative rights.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
