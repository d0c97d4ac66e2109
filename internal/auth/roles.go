package auth

// Role grants access to a set of routes. Roles are ordered: admin implies
// operator implies viewer.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var roleLevels = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// ParseRole converts a claim value into a known role.
func ParseRole(value string) (Role, error) {
	role := Role(value)
	if _, ok := roleLevels[role]; !ok {
		return "", ErrInvalidRole
	}
	return role, nil
}

// Satisfies reports whether r grants at least the access of required.
func (r Role) Satisfies(required Role) bool {
	level, ok := roleLevels[r]
	if !ok {
		return false
	}
	return level >= roleLevels[required]
}
