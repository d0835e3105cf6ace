package authz

import (
	"net/http"
	"strings"
)

// ResourceMapping maps an HTTP request to a migration resource and verb for
// authorization.
type ResourceMapping struct {
	Resource string
	Verb     string
}

// UnknownMapping is returned when no known pattern matches the request.
// Callers should deny requests with this mapping by default.
var UnknownMapping = ResourceMapping{Resource: "", Verb: ""}

// MapRequest maps an HTTP method and URL path to a ResourceMapping.
// The mapper uses path segment patterns to determine the appropriate
// resource and verb for authorization checks.
func MapRequest(method, path string) ResourceMapping {
	// Normalize the path: trim trailing slash.
	path = strings.TrimRight(path, "/")

	// Check specific patterns from most specific to least specific.

	// Mutation verbs: POST *:apply, *:applyBatch, *:retry, *:retryFailed,
	// *:rollback.
	if method == http.MethodPost {
		switch {
		case strings.HasSuffix(path, ":rollback"):
			return ResourceMapping{Resource: ResourceMigrations, Verb: VerbRollback}
		case strings.HasSuffix(path, ":apply"),
			strings.HasSuffix(path, ":applyBatch"),
			strings.HasSuffix(path, ":retry"),
			strings.HasSuffix(path, ":retryFailed"):
			return ResourceMapping{Resource: ResourceMigrations, Verb: VerbApply}
		case strings.HasSuffix(path, ":cancel"):
			return ResourceMapping{Resource: ResourceJobs, Verb: VerbCreate}
		case strings.HasSuffix(path, "/discover"):
			return ResourceMapping{Resource: ResourceMigrations, Verb: VerbCreate}
		}
	}

	// Job routes: */jobs and */jobs/{id}
	if idx := strings.Index(path, "/jobs"); idx >= 0 {
		switch method {
		case http.MethodGet:
			if strings.Contains(path[idx:], "/jobs/") {
				return ResourceMapping{Resource: ResourceJobs, Verb: VerbGet}
			}
			return ResourceMapping{Resource: ResourceJobs, Verb: VerbList}
		default:
			return ResourceMapping{Resource: ResourceJobs, Verb: VerbCreate}
		}
	}

	// Audit routes: */audit
	if strings.Contains(path, "/audit") {
		switch method {
		case http.MethodGet:
			return ResourceMapping{Resource: ResourceAudit, Verb: VerbList}
		default:
			return ResourceMapping{Resource: ResourceAudit, Verb: VerbGet}
		}
	}

	// Live translation routes: */translations*
	if strings.Contains(path, "/translations") {
		switch method {
		case http.MethodGet:
			return ResourceMapping{Resource: ResourceTranslations, Verb: VerbList}
		default:
			return ResourceMapping{Resource: ResourceTranslations, Verb: VerbGet}
		}
	}

	// Migration record routes: */migrations and sub-paths (preview, download).
	if strings.Contains(path, "/migrations") {
		switch method {
		case http.MethodGet:
			if strings.Contains(path, "/migrations/") {
				return ResourceMapping{Resource: ResourceMigrations, Verb: VerbGet}
			}
			return ResourceMapping{Resource: ResourceMigrations, Verb: VerbList}
		default:
			return ResourceMapping{Resource: ResourceMigrations, Verb: VerbGet}
		}
	}

	// Default: unknown pattern.
	return UnknownMapping
}
