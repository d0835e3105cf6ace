package bundlestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/i18nhub/translation-migrator/pkg/bundle"
	"github.com/i18nhub/translation-migrator/pkg/interfaces"
)

// FSStore serves bundles from a local directory tree with the same layout as
// the remote stores: <root>/<interface>/<filename> plus the manifest sidecar.
// Intended for development and air-gapped imports.
type FSStore struct {
	root string
}

// NewFSStore creates a store rooted at dir. The directory must exist.
func NewFSStore(dir string) (*FSStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("bundle dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bundle dir %s is not a directory", dir)
	}
	return &FSStore{root: dir}, nil
}

// ListManifests implements Store.
func (s *FSStore) ListManifests(_ context.Context, tag interfaces.Tag) ([]*bundle.Manifest, error) {
	dir := filepath.Join(s.root, string(tag))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list bundles for %s: %w", tag, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ManifestSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	manifests := make([]*bundle.Manifest, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read manifest %s: %w", name, err)
		}
		m, err := bundle.ParseManifest(data)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", name, err)
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// Fetch implements Store.
func (s *FSStore) Fetch(_ context.Context, tag interfaces.Tag, filename string) ([]byte, error) {
	path := filepath.Join(s.root, string(tag), filepath.Base(filename))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch bundle %s/%s: %w", tag, filename, err)
	}
	return data, nil
}

// Put writes a bundle and its manifest under the root, creating the
// interface directory as needed. Used by tests and local tooling.
func (s *FSStore) Put(tag interfaces.Tag, m *bundle.Manifest, content []byte) error {
	dir := filepath.Join(s.root, string(tag))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, m.Filename), content, 0o644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	raw, err := marshalManifest(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, m.Filename+ManifestSuffix), raw, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
