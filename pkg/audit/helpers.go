package audit

import (
	"strings"
)

// extractActionVerb returns a human-readable action name from the HTTP
// method and path. Custom verbs use the ":verb" suffix convention, e.g.
// /migrations/{id}:apply.
func extractActionVerb(method, path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")

	// Check for :verb suffix in path segments.
	for _, p := range parts {
		if colonIdx := strings.Index(p, ":"); colonIdx > 0 {
			switch p[colonIdx+1:] {
			case "apply":
				return "apply"
			case "applyBatch":
				return "apply-batch"
			case "rollback":
				return "rollback"
			case "retry":
				return "retry"
			case "retryFailed":
				return "retry-failed"
			case "cancel":
				return "cancel"
			}
		}
	}

	for _, p := range parts {
		if p == "discover" {
			return "discover"
		}
	}

	// Fall back to HTTP method mapping.
	switch method {
	case "POST":
		return "create"
	case "PUT":
		return "update"
	case "PATCH":
		return "patch"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// extractRecordID extracts a migration record or job ID from a URL path.
// Returns "" when the path carries no ID.
func extractRecordID(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")

	// Walk backwards so the collection segment wins over the API group
	// segment, which is also named "migrations" in /api/migrations/{ver}.
	for i := len(parts) - 2; i >= 1; i-- {
		switch parts[i] {
		case "migrations", "jobs":
			if parts[i-1] == "api" {
				continue
			}
			id := parts[i+1]
			// Strip verb suffix (e.g., "rec-1:apply" -> "rec-1").
			if colonIdx := strings.Index(id, ":"); colonIdx > 0 {
				id = id[:colonIdx]
			}
			return id
		}
	}
	return ""
}

// isAuditedEndpoint returns true if the request should be audited.
// Mutating methods (POST, PUT, PATCH, DELETE) are audited; pure browsing
// (GET) is not.
func isAuditedEndpoint(method, path string) bool {
	if isHealthEndpoint(path) {
		return false
	}

	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}

// isHealthEndpoint returns true for health-check paths.
func isHealthEndpoint(path string) bool {
	switch path {
	case "/livez", "/readyz", "/healthz":
		return true
	}
	return false
}
