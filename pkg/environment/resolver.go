package environment

import (
	"fmt"
	"net/http"
	"regexp"
)

// maxEnvironmentLen is the maximum length for an environment name.
const maxEnvironmentLen = 63

// environmentRe validates environment format: lowercase alphanumeric and
// hyphens, must start and end with an alphanumeric character.
var environmentRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// QueryParam is the query parameter name used for environment resolution.
const QueryParam = "environment"

// Header is the HTTP header used for environment resolution.
const Header = "X-Environment"

// Resolver resolves the environment scope from an HTTP request.
type Resolver interface {
	Resolve(r *http.Request) (Scope, error)
}

// SingleResolver always returns the "default" environment.
type SingleResolver struct{}

// Resolve always returns a Scope with Environment "default".
func (s SingleResolver) Resolve(_ *http.Request) (Scope, error) {
	return Scope{Environment: "default"}, nil
}

// MultiResolver reads the environment from the request query parameter or
// header. In multi-environment mode the environment is always required.
type MultiResolver struct{}

// Resolve extracts the environment from the request. It checks the query
// parameter first, then falls back to the X-Environment header. Returns an
// error if the environment is missing or invalid.
func (m MultiResolver) Resolve(r *http.Request) (Scope, error) {
	env := r.URL.Query().Get(QueryParam)
	if env == "" {
		env = r.Header.Get(Header)
	}

	if env == "" {
		return Scope{}, fmt.Errorf("environment is required in multi-environment mode (use ?environment= query param or X-Environment header)")
	}

	if err := validateEnvironment(env); err != nil {
		return Scope{}, err
	}

	return Scope{Environment: env}, nil
}

// validateEnvironment checks that an environment name is a DNS-label style
// string: lowercase alphanumeric and hyphens, 1-63 characters, starts and
// ends with alphanumeric.
func validateEnvironment(env string) error {
	if len(env) > maxEnvironmentLen {
		return fmt.Errorf("environment %q exceeds maximum length of %d characters", env, maxEnvironmentLen)
	}
	if !environmentRe.MatchString(env) {
		return fmt.Errorf("environment %q is invalid: must consist of lowercase alphanumeric characters or hyphens, and must start and end with an alphanumeric character", env)
	}
	return nil
}
