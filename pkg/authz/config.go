package authz

// AuthzMode selects the authorization backend.
type AuthzMode string

const (
	// AuthzModeNone disables authorization checks (dev/backward compat).
	AuthzModeNone AuthzMode = "none"
	// AuthzModeRoleMap uses a static role-map file for authorization.
	AuthzModeRoleMap AuthzMode = "rolemap"
)
