// Package interfaces defines the closed set of front-end interface tags that
// produce translation bundles. Every component that touches a bundle or a
// translation row is scoped to exactly one of these tags.
package interfaces

import (
	"fmt"
	"strings"
)

// Tag identifies the front-end product a bundle or translation belongs to.
type Tag string

const (
	Mobile         Tag = "mobile"
	WebFinancer    Tag = "web_financer"
	WebBeneficiary Tag = "web_beneficiary"
)

// All is the canonical list of known interface tags.
var All = []Tag{Mobile, WebFinancer, WebBeneficiary}

// Valid reports whether t is a known interface tag.
func (t Tag) Valid() bool {
	for _, known := range All {
		if t == known {
			return true
		}
	}
	return false
}

func (t Tag) String() string { return string(t) }

// Parse converts a string into a Tag, rejecting unknown values.
func Parse(s string) (Tag, error) {
	t := Tag(strings.TrimSpace(strings.ToLower(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown interface tag %q (expected one of %s)", s, joinAll())
	}
	return t, nil
}

// ParseSet converts a list of strings into a de-duplicated tag set,
// preserving first-seen order. An empty input means all interfaces.
func ParseSet(values []string) ([]Tag, error) {
	if len(values) == 0 {
		return append([]Tag(nil), All...), nil
	}
	seen := make(map[Tag]bool, len(values))
	var tags []Tag
	for _, v := range values {
		t, err := Parse(v)
		if err != nil {
			return nil, err
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags, nil
}

func joinAll() string {
	parts := make([]string, len(All))
	for i, t := range All {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
