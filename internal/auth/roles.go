package auth

import "slices"

// Role is an authorisation tier.
type Role string

// Roles.
const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// Permission is a named capability checked by the API.
type Permission string

// Permissions.
const (
	// PermLoggingRead covers status, participant listing and the log stream.
	PermLoggingRead Permission = "logging:read"
	// PermLoggingOperate covers start, stop, routes, interval, schedule and commands.
	PermLoggingOperate Permission = "logging:operate"
	// PermSamplerOperate covers starting and stopping the host sampler.
	PermSamplerOperate Permission = "sampler:operate"
	// PermSystemAdmin is reserved for administrative endpoints.
	PermSystemAdmin Permission = "system:admin"
)

var rolePermissions = map[Role][]Permission{
	RoleViewer:   {PermLoggingRead},
	RoleOperator: {PermLoggingRead, PermLoggingOperate, PermSamplerOperate},
	RoleAdmin:    {PermLoggingRead, PermLoggingOperate, PermSamplerOperate, PermSystemAdmin},
}

// HasPermission reports whether role grants perm.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns a copy of the permissions of role, or nil for
// an unknown role.
func PermissionsForRole(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}

// ValidRole reports whether role is known.
func ValidRole(role Role) bool {
	_, ok := rolePermissions[role]
	return ok
}
