package model

// Role is the operational role of an authenticated actor.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleDioceseAdmin Role = "diocese_admin"
	RoleParishStaff  Role = "parish_staff"
	RoleOperator     Role = "operator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleDioceseAdmin, RoleParishStaff, RoleOperator:
		return true
	}
	return false
}

// Actor is whoever triggers an operation: a staff member, an operator or a
// batch job. It is passed explicitly to services and log calls.
type Actor struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	DioceseID string `json:"diocese_id,omitempty"`
	ParishID  string `json:"parish_id,omitempty"`
}

// SystemActor is used by scheduled jobs and the operator CLI.
var SystemActor = &Actor{ID: "system", Role: RoleOperator}
