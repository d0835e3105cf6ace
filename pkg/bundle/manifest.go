// Package bundle defines the wire representation of a translation bundle:
// the manifest describing it (filename, interface origin, version, content
// checksum, free-form metadata) and the content format mapping translation
// keys to per-locale values. It also provides content integrity validation.
package bundle

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/i18nhub/translation-migrator/pkg/interfaces"
)

// Manifest describes a bundle without requiring its full content.
// It is produced by the exporting front-end alongside the bundle object.
type Manifest struct {
	Filename  string         `json:"filename"`
	Interface interfaces.Tag `json:"interface"`
	Version   string         `json:"version"`
	Checksum  string         `json:"checksum"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Validate checks that the manifest carries the fields discovery depends on.
func (m *Manifest) Validate() error {
	if m.Filename == "" {
		return fmt.Errorf("manifest missing filename")
	}
	if !m.Interface.Valid() {
		return fmt.Errorf("manifest for %s has unknown interface %q", m.Filename, m.Interface)
	}
	if m.Version == "" {
		return fmt.Errorf("manifest for %s missing version", m.Filename)
	}
	if m.Checksum == "" {
		return fmt.Errorf("manifest for %s missing checksum", m.Filename)
	}
	return nil
}

// ParseManifest decodes a manifest JSON document and validates it.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Content is the decoded body of a bundle: translation key to per-locale value.
type Content struct {
	Entries map[string]map[string]string `json:"entries"`
}

// ParseContent decodes bundle bytes into Content.
func ParseContent(data []byte) (*Content, error) {
	var c Content
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse bundle content: %w", err)
	}
	if c.Entries == nil {
		return nil, fmt.Errorf("bundle content has no entries object")
	}
	return &c, nil
}

// Keys returns the bundle's translation keys in sorted order.
func (c *Content) Keys() []string {
	keys := make([]string, 0, len(c.Entries))
	for k := range c.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RowCount returns the number of (key, locale) pairs in the bundle.
func (c *Content) RowCount() int {
	n := 0
	for _, locales := range c.Entries {
		n += len(locales)
	}
	return n
}
