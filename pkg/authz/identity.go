package authz

import (
	"context"
	"net/http"
	"strings"
)

// AnonymousUser is the identity assigned to requests that carry no
// X-Remote-User header. Role maps can still bind it explicitly.
const AnonymousUser = "anonymous"

// identityCtxKey is an unexported type used as the context key for Identity.
type identityCtxKey struct{}

// Identity is the authenticated caller of a migration API request, as
// asserted by the authenticating proxy in front of the server.
type Identity struct {
	User   string
	Groups []string
}

// WithIdentity returns a new context with the given Identity attached.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext retrieves the Identity from the context.
// Returns the zero value and false if no identity is set.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// identityFromHeaders builds an Identity from the X-Remote-User and
// X-Remote-Group headers. X-Remote-Group is comma-separated; empty
// entries are dropped.
func identityFromHeaders(h http.Header) Identity {
	id := Identity{User: strings.TrimSpace(h.Get("X-Remote-User"))}
	if id.User == "" {
		id.User = AnonymousUser
	}

	if raw := strings.TrimSpace(h.Get("X-Remote-Group")); raw != "" {
		for _, g := range strings.Split(raw, ",") {
			if g = strings.TrimSpace(g); g != "" {
				id.Groups = append(id.Groups, g)
			}
		}
	}
	return id
}

// IdentityMiddleware returns HTTP middleware that resolves the caller's
// identity from the proxy headers and stores it in the request context.
func IdentityMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithIdentity(r.Context(), identityFromHeaders(r.Header))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
