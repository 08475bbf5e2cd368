package memberauth

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is a regular member account
	RoleUser UserRole = "user"
	// RoleSecretary can manage member records and schedules
	RoleSecretary UserRole = "secretary"
	// RoleAdmin can administer the club
	RoleAdmin UserRole = "admin"
	// RoleSuperAdmin can administer everything, including admins
	RoleSuperAdmin UserRole = "superadmin"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleSecretary, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleUser,
		RoleSecretary,
		RoleAdmin,
		RoleSuperAdmin,
	}
}

// RoleIn reports whether role is a member of the allowed set. This is the
// whole of the authorization decision: it runs only after the
// authentication gate has resolved an identity.
func RoleIn(role UserRole, allowed ...UserRole) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
