// Package authz provides authorization primitives for the migration server.
// It supports a static role-map backend and a no-op mode for development and
// backward compatibility.
package authz

import "context"

// Resource names for permission mapping.
const (
	ResourceMigrations   = "migrations"
	ResourceTranslations = "translations"
	ResourceJobs         = "jobs"
	ResourceAudit        = "audit"
)

// Verb names for permission mapping.
const (
	VerbGet      = "get"
	VerbList     = "list"
	VerbCreate   = "create"
	VerbApply    = "apply"
	VerbRollback = "rollback"
)

// AuthzRequest represents an authorization check.
type AuthzRequest struct {
	User        string
	Groups      []string
	Resource    string
	Verb        string
	Environment string // Empty for environment-independent checks.
}

// Authorizer checks whether a user is authorized to perform an action.
type Authorizer interface {
	Authorize(ctx context.Context, req AuthzRequest) (bool, error)
}
