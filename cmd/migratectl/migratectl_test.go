package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// --- truncate tests ---

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a long string", 10, "this is..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			got := truncate(tt.s, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
			}
		})
	}
}

// --- client header tests ---

func TestClientSendsIdentityHeaders(t *testing.T) {
	var gotEnv, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEnv = r.Header.Get("X-Environment")
		gotUser = r.Header.Get("X-Remote-User")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	serverURL = srv.URL
	envName = "staging"
	asUser = "alice"
	defer func() {
		envName = ""
		asUser = ""
	}()

	client := newClient()
	var resp map[string]string
	if err := client.getJSON("/healthz", &resp); err != nil {
		t.Fatalf("getJSON: %v", err)
	}

	if gotEnv != "staging" {
		t.Errorf("X-Environment = %q, want %q", gotEnv, "staging")
	}
	if gotUser != "alice" {
		t.Errorf("X-Remote-User = %q, want %q", gotUser, "alice")
	}
}

func TestClientRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such record"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	serverURL = srv.URL
	client := newClient()

	var resp map[string]string
	if err := client.getJSON("/missing", &resp); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestClientAcceptsAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"jobId": "j-1", "state": "queued"})
	}))
	defer srv.Close()

	serverURL = srv.URL
	client := newClient()

	var job enqueuedJob
	if err := client.postJSON("/enqueue", map[string]any{"async": true}, &job); err != nil {
		t.Fatalf("postJSON: %v", err)
	}
	if job.JobID != "j-1" {
		t.Errorf("jobId = %q, want %q", job.JobID, "j-1")
	}
}

// --- environment resolution tests ---

func TestResolvedEnvironment(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		envName = "production"
		t.Setenv("MIGRATOR_ENVIRONMENT", "staging")
		defer func() { envName = "" }()

		if got := resolvedEnvironment(); got != "production" {
			t.Errorf("resolvedEnvironment() = %q, want %q", got, "production")
		}
	})

	t.Run("env var fallback", func(t *testing.T) {
		envName = ""
		t.Setenv("MIGRATOR_ENVIRONMENT", "staging")

		if got := resolvedEnvironment(); got != "staging" {
			t.Errorf("resolvedEnvironment() = %q, want %q", got, "staging")
		}
	})
}

// --- command tree tests ---

func TestCommandTree(t *testing.T) {
	subNames := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		subNames[sub.Name()] = true
	}

	for _, want := range []string{"discover", "migrations", "jobs", "translations", "audit", "health"} {
		if !subNames[want] {
			t.Errorf("expected %s subcommand", want)
		}
	}

	migSubs := make(map[string]bool)
	for _, sub := range migrationsCmd.Commands() {
		migSubs[sub.Name()] = true
	}
	for _, want := range []string{"list", "get", "preview", "download", "apply", "rollback", "retry", "apply-batch", "retry-failed"} {
		if !migSubs[want] {
			t.Errorf("expected migrations %s subcommand", want)
		}
	}
}
