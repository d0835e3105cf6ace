// Package environment provides deployment-environment scoping and middleware
// for the migration server. It supports a single-environment mode (backward
// compatible) and a multi-environment mode where every request names its
// environment.
package environment

// Mode controls how the request environment is resolved.
type Mode string

const (
	// ModeSingle uses "default" for all requests (backward compat).
	ModeSingle Mode = "single"
	// ModeMulti requires an environment per request.
	ModeMulti Mode = "multi"
)
