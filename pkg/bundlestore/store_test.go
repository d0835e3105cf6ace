package bundlestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i18nhub/translation-migrator/pkg/bundle"
	"github.com/i18nhub/translation-migrator/pkg/interfaces"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	content := []byte(`{"entries":{"a":{"en":"A"}}}`)
	m := s.Put(interfaces.Mobile, "en.json", "1.0.0", content, "")

	assert.Equal(t, bundle.Checksum(content), m.Checksum)

	manifests, err := s.ListManifests(context.Background(), interfaces.Mobile)
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.Equal(t, "en.json", manifests[0].Filename)

	data, err := s.Fetch(context.Background(), interfaces.Mobile, "en.json")
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestMemoryStoreScopesByInterface(t *testing.T) {
	s := NewMemoryStore()
	s.Put(interfaces.Mobile, "en.json", "1", []byte(`{"entries":{}}`), "")

	manifests, err := s.ListManifests(context.Background(), interfaces.WebFinancer)
	require.NoError(t, err)
	assert.Empty(t, manifests)

	_, err = s.Fetch(context.Background(), interfaces.WebFinancer, "en.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSimulatedOutage(t *testing.T) {
	s := NewMemoryStore()
	s.FailInterfaces = map[interfaces.Tag]error{
		interfaces.Mobile: errors.New("storage unreachable"),
	}

	_, err := s.ListManifests(context.Background(), interfaces.Mobile)
	assert.Error(t, err)
}

func TestFSStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(dir)
	require.NoError(t, err)

	content := []byte(`{"entries":{"greeting":{"fr":"Bonjour"}}}`)
	m := &bundle.Manifest{
		Filename:  "fr.json",
		Interface: interfaces.WebBeneficiary,
		Version:   "2.1.0",
		Checksum:  bundle.Checksum(content),
	}
	require.NoError(t, s.Put(interfaces.WebBeneficiary, m, content))

	manifests, err := s.ListManifests(context.Background(), interfaces.WebBeneficiary)
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.Equal(t, "2.1.0", manifests[0].Version)

	data, err := s.Fetch(context.Background(), interfaces.WebBeneficiary, "fr.json")
	require.NoError(t, err)
	assert.True(t, bundle.ValidateChecksum(data, m.Checksum))
}

func TestFSStoreEmptyInterfaceListsNothing(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	manifests, err := s.ListManifests(context.Background(), interfaces.Mobile)
	require.NoError(t, err)
	assert.Empty(t, manifests)
}

// countingStore counts fetches to verify cache hits.
type countingStore struct {
	*MemoryStore
	fetches int
}

func (c *countingStore) Fetch(ctx context.Context, tag interfaces.Tag, filename string) ([]byte, error) {
	c.fetches++
	return c.MemoryStore.Fetch(ctx, tag, filename)
}

func TestCachingStoreServesRepeatFetchesFromCache(t *testing.T) {
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	inner.Put(interfaces.Mobile, "en.json", "1", []byte(`{"entries":{}}`), "")
	cached := NewCachingStore(inner, 10, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := cached.Fetch(context.Background(), interfaces.Mobile, "en.json")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inner.fetches)
}

func TestCachingStoreEvictsAtCapacity(t *testing.T) {
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	inner.Put(interfaces.Mobile, "a.json", "1", []byte(`{"entries":{}}`), "")
	inner.Put(interfaces.Mobile, "b.json", "1", []byte(`{"entries":{}}`), "")
	cached := NewCachingStore(inner, 1, time.Minute)

	_, err := cached.Fetch(context.Background(), interfaces.Mobile, "a.json")
	require.NoError(t, err)
	_, err = cached.Fetch(context.Background(), interfaces.Mobile, "b.json")
	require.NoError(t, err)
	// a.json was evicted, so this is a real fetch again.
	_, err = cached.Fetch(context.Background(), interfaces.Mobile, "a.json")
	require.NoError(t, err)
	assert.Equal(t, 3, inner.fetches)
}

func TestCachingStoreDoesNotCacheErrors(t *testing.T) {
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	cached := NewCachingStore(inner, 10, time.Minute)

	_, err := cached.Fetch(context.Background(), interfaces.Mobile, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cached.Fetch(context.Background(), interfaces.Mobile, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, inner.fetches)
}
