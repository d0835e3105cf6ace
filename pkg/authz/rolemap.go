package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Rule grants a set of verbs on a set of resources. "*" matches everything.
type Rule struct {
	Resources    []string `json:"resources"`
	Verbs        []string `json:"verbs"`
	Environments []string `json:"environments,omitempty"` // Empty means all.
}

// RoleMap is the static authorization policy: named roles made of rules,
// and bindings from subjects to roles. Subjects are "user:<name>" or
// "group:<name>"; the special subject "user:*" binds every user.
type RoleMap struct {
	Roles    map[string][]Rule   `json:"roles"`
	Bindings map[string][]string `json:"bindings"`
}

// RoleMapAuthorizer authorizes against a static RoleMap. Used when
// MIGRATOR_AUTHZ_MODE=rolemap.
type RoleMapAuthorizer struct {
	policy RoleMap
}

// NewRoleMapAuthorizer creates a RoleMapAuthorizer from a policy.
func NewRoleMapAuthorizer(policy RoleMap) *RoleMapAuthorizer {
	return &RoleMapAuthorizer{policy: policy}
}

// LoadRoleMap reads a RoleMap policy from a JSON file.
func LoadRoleMap(path string) (RoleMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RoleMap{}, fmt.Errorf("read role map: %w", err)
	}
	var policy RoleMap
	if err := json.Unmarshal(data, &policy); err != nil {
		return RoleMap{}, fmt.Errorf("parse role map: %w", err)
	}
	return policy, nil
}

// Authorize checks the request against every role bound to the user or any
// of their groups. Deny by default: a request is allowed only when some
// bound rule matches its resource, verb, and environment.
func (a *RoleMapAuthorizer) Authorize(_ context.Context, req AuthzRequest) (bool, error) {
	subjects := make([]string, 0, len(req.Groups)+2)
	subjects = append(subjects, "user:*", "user:"+req.User)
	for _, g := range req.Groups {
		subjects = append(subjects, "group:"+g)
	}

	for _, subject := range subjects {
		for _, roleName := range a.policy.Bindings[subject] {
			for _, rule := range a.policy.Roles[roleName] {
				if ruleMatches(rule, req) {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func ruleMatches(rule Rule, req AuthzRequest) bool {
	if !matchAny(rule.Resources, req.Resource) {
		return false
	}
	if !matchAny(rule.Verbs, req.Verb) {
		return false
	}
	if len(rule.Environments) > 0 && req.Environment != "" && !matchAny(rule.Environments, req.Environment) {
		return false
	}
	return true
}

func matchAny(patterns []string, value string) bool {
	for _, p := range patterns {
		if p == "*" || p == value {
			return true
		}
	}
	return false
}
