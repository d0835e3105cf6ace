// Package ha provides primitives for running the migration server with
// multiple replicas: schema locking around AutoMigrate with crash-safe
// cleanup of stale holders.
package ha

import (
	"os"
	"strings"
)

// HAConfig holds configuration for multi-replica deployments.
type HAConfig struct {
	// SchemaLockEnabled controls whether database schema locking is used
	// to prevent concurrent schema changes.
	SchemaLockEnabled bool

	// Identity is the unique identity of this instance, recorded as the
	// lock holder. Defaults to POD_NAME or the hostname.
	Identity string
}

// DefaultHAConfig returns an HAConfig with sensible defaults.
func DefaultHAConfig() *HAConfig {
	return &HAConfig{
		SchemaLockEnabled: true,
		Identity:          defaultIdentity(),
	}
}

// HAConfigFromEnv reads HA configuration from environment variables,
// falling back to defaults for any unset variable.
//
// Environment variables:
//   - MIGRATOR_SCHEMA_LOCK_ENABLED: "true" or "false" (default: "true")
//   - POD_NAME: instance identity recorded on the lock row
func HAConfigFromEnv() *HAConfig {
	cfg := DefaultHAConfig()

	if v := os.Getenv("MIGRATOR_SCHEMA_LOCK_ENABLED"); v != "" {
		cfg.SchemaLockEnabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("POD_NAME"); v != "" {
		cfg.Identity = v
	}

	return cfg
}

func defaultIdentity() string {
	if v := os.Getenv("POD_NAME"); v != "" {
		return v
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
