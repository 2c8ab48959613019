package ayushya

// UserRole is the user's role
type UserRole string

const (
	// RoleMember is a regular account (i.e. view, edit own data)
	RoleMember UserRole = "member"
	// RoleAdmin is an operator account (i.e. maintenance endpoints, other users' sessions)
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleMember, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleMember: 0,
		RoleAdmin:  1,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// ParseRole maps a string to a known role
func ParseRole(role string) (UserRole, bool) {
	r := UserRole(role)
	return r, r.IsValid()
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleMember,
		RoleAdmin,
	}
}
