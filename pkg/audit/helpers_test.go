package audit

import (
	"testing"
)

func TestExtractActionVerb(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{"POST", "/api/migrations/v1alpha1/migrations/rec-1:apply", "apply"},
		{"POST", "/api/migrations/v1alpha1/migrations/rec-1:rollback", "rollback"},
		{"POST", "/api/migrations/v1alpha1/migrations/rec-1:retry", "retry"},
		{"POST", "/api/migrations/v1alpha1/migrations:applyBatch", "apply-batch"},
		{"POST", "/api/migrations/v1alpha1/migrations:retryFailed", "retry-failed"},
		{"POST", "/api/migrations/v1alpha1/jobs/job-1:cancel", "cancel"},
		{"POST", "/api/migrations/v1alpha1/discover", "discover"},
		{"POST", "/api/migrations/v1alpha1/other", "create"},
		{"PUT", "/api/migrations/v1alpha1/other", "update"},
		{"PATCH", "/api/migrations/v1alpha1/other", "patch"},
		{"DELETE", "/api/migrations/v1alpha1/other", "delete"},
		{"GET", "/api/migrations/v1alpha1/migrations", "get"},
	}

	for _, tt := range tests {
		if got := extractActionVerb(tt.method, tt.path); got != tt.want {
			t.Errorf("extractActionVerb(%q, %q) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestExtractRecordID(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/migrations/v1alpha1/migrations/rec-1", "rec-1"},
		{"/api/migrations/v1alpha1/migrations/rec-1:apply", "rec-1"},
		{"/api/migrations/v1alpha1/migrations/rec-1/preview", "rec-1"},
		{"/api/migrations/v1alpha1/jobs/job-9:cancel", "job-9"},
		{"/api/migrations/v1alpha1/discover", ""},
		{"/api/migrations/v1alpha1/migrations", ""},
	}

	for _, tt := range tests {
		if got := extractRecordID(tt.path); got != tt.want {
			t.Errorf("extractRecordID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestIsAuditedEndpoint(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{"POST", "/api/migrations/v1alpha1/discover", true},
		{"PUT", "/api/migrations/v1alpha1/migrations/rec-1", true},
		{"PATCH", "/api/migrations/v1alpha1/migrations/rec-1", true},
		{"DELETE", "/api/migrations/v1alpha1/migrations/rec-1", true},
		{"GET", "/api/migrations/v1alpha1/migrations", false},
		{"POST", "/healthz", false},
		{"POST", "/livez", false},
		{"POST", "/readyz", false},
	}

	for _, tt := range tests {
		if got := isAuditedEndpoint(tt.method, tt.path); got != tt.want {
			t.Errorf("isAuditedEndpoint(%q, %q) = %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}
}
