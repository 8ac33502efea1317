package commands

// Role is the permission tier gating a command. Roles form a total order:
// OWNER implies ADMIN, ADMIN implies USER.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
	RoleOwner
)

// Satisfies reports whether a holder of r may run a command requiring
// required.
func (r Role) Satisfies(required Role) bool {
	return r >= required
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleOwner:
		return "owner"
	default:
		return "user"
	}
}
