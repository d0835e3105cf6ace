package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestIdentityContextRoundTrip(t *testing.T) {
	id := Identity{User: "release-bot", Groups: []string{"i18n-team", "release"}}

	ctx := WithIdentity(context.Background(), id)
	got, ok := IdentityFromContext(ctx)
	if !ok {
		t.Fatal("expected identity in context, got none")
	}
	if got.User != id.User {
		t.Errorf("User = %q, want %q", got.User, id.User)
	}
	if !reflect.DeepEqual(got.Groups, id.Groups) {
		t.Errorf("Groups = %v, want %v", got.Groups, id.Groups)
	}
}

func TestIdentityFromContextMissing(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Error("expected no identity in empty context")
	}
}

func TestIdentityFromHeaders(t *testing.T) {
	tests := []struct {
		name       string
		user       string
		groups     string
		wantUser   string
		wantGroups []string
	}{
		{
			name:       "both headers present",
			user:       "alice",
			groups:     "i18n-team,release",
			wantUser:   "alice",
			wantGroups: []string{"i18n-team", "release"},
		},
		{
			name:       "missing user defaults to anonymous",
			groups:     "i18n-team",
			wantUser:   AnonymousUser,
			wantGroups: []string{"i18n-team"},
		},
		{
			name:     "missing group header",
			user:     "bob",
			wantUser: "bob",
		},
		{
			name:     "both headers missing",
			wantUser: AnonymousUser,
		},
		{
			name:       "groups with spaces and empty segments",
			user:       "carol",
			groups:     " i18n-team ,, release , ",
			wantUser:   "carol",
			wantGroups: []string{"i18n-team", "release"},
		},
		{
			name:     "whitespace-only user defaults to anonymous",
			user:     "   ",
			wantUser: AnonymousUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.user != "" {
				h.Set("X-Remote-User", tt.user)
			}
			if tt.groups != "" {
				h.Set("X-Remote-Group", tt.groups)
			}

			got := identityFromHeaders(h)
			if got.User != tt.wantUser {
				t.Errorf("User = %q, want %q", got.User, tt.wantUser)
			}
			if !reflect.DeepEqual(got.Groups, tt.wantGroups) {
				t.Errorf("Groups = %v, want %v", got.Groups, tt.wantGroups)
			}
		})
	}
}

func TestIdentityMiddleware(t *testing.T) {
	var captured Identity
	var capturedOK bool

	handler := IdentityMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, capturedOK = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/migrations/v1alpha1/migrations", nil)
	req.Header.Set("X-Remote-User", "alice")
	req.Header.Set("X-Remote-Group", "i18n-team,release")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !capturedOK {
		t.Fatal("expected identity in context after middleware")
	}
	if captured.User != "alice" {
		t.Errorf("User = %q, want %q", captured.User, "alice")
	}
	if !reflect.DeepEqual(captured.Groups, []string{"i18n-team", "release"}) {
		t.Errorf("Groups = %v", captured.Groups)
	}
}
