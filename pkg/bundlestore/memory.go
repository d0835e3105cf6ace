package bundlestore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/i18nhub/translation-migrator/pkg/bundle"
	"github.com/i18nhub/translation-migrator/pkg/interfaces"
)

// MemoryStore is an in-memory Store for tests and local experiments.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailInterfaces simulates per-interface storage outages: listing or
	// fetching for a tag present in this set returns the mapped error.
	FailInterfaces map[interfaces.Tag]error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores a bundle and a generated manifest for it. The manifest checksum
// is computed from the stored bytes unless overrideChecksum is non-empty.
func (s *MemoryStore) Put(tag interfaces.Tag, filename, version string, content []byte, overrideChecksum string) *bundle.Manifest {
	checksum := overrideChecksum
	if checksum == "" {
		checksum = bundle.Checksum(content)
	}
	m := &bundle.Manifest{
		Filename:  filename,
		Interface: tag,
		Version:   version,
		Checksum:  checksum,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey(tag, filename)] = content
	raw, _ := marshalManifest(m)
	s.objects[manifestKey(tag, filename)] = raw
	return m
}

// ListManifests implements Store.
func (s *MemoryStore) ListManifests(_ context.Context, tag interfaces.Tag) ([]*bundle.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.FailInterfaces[tag]; err != nil {
		return nil, err
	}

	prefix := string(tag) + "/"
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) && strings.HasSuffix(k, ManifestSuffix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	manifests := make([]*bundle.Manifest, 0, len(keys))
	for _, k := range keys {
		m, err := bundle.ParseManifest(s.objects[k])
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// Fetch implements Store.
func (s *MemoryStore) Fetch(_ context.Context, tag interfaces.Tag, filename string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.FailInterfaces[tag]; err != nil {
		return nil, err
	}

	data, ok := s.objects[objectKey(tag, filename)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
