package environment

import "context"

// ctxKey is an unexported type used as the context key for Scope.
type ctxKey struct{}

// Scope carries the resolved environment through request context.
type Scope struct {
	Environment string
}

// WithScope returns a new context with the given Scope attached.
func WithScope(ctx context.Context, sc Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, sc)
}

// ScopeFromContext retrieves the Scope from the context.
// Returns the zero value and false if no scope is set.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	sc, ok := ctx.Value(ctxKey{}).(Scope)
	return sc, ok
}

// FromContext is a convenience function that returns the environment from the
// context, or "" if no scope is set.
func FromContext(ctx context.Context) string {
	sc, ok := ScopeFromContext(ctx)
	if !ok {
		return ""
	}
	return sc.Environment
}
