package domain

// Role is the closed set of actor roles known to the service.
type Role string

const (
	RoleUser    Role = "USER"
	RoleSupport Role = "SUPPORT"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSupport, RoleAdmin:
		return true
	}
	return false
}

// CanBeAssignee reports whether a principal with this role may hold
// ticket assignments.
func (r Role) CanBeAssignee() bool {
	return r == RoleSupport || r == RoleAdmin
}

// Principal is the authenticated caller, resolved once per request.
type Principal struct {
	ID   string
	Role Role
}
