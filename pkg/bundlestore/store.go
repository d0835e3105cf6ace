// Package bundlestore provides access to remote storage holding versioned
// translation bundles and their manifests. The layout is one prefix per
// interface tag, each bundle object stored under its filename next to a
// sidecar manifest named "<filename>.manifest.json".
package bundlestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/i18nhub/translation-migrator/pkg/bundle"
	"github.com/i18nhub/translation-migrator/pkg/interfaces"
)

// ManifestSuffix is appended to a bundle filename to form its manifest key.
const ManifestSuffix = ".manifest.json"

// ErrNotFound is returned when a bundle or manifest object does not exist.
var ErrNotFound = errors.New("bundle not found")

// Store lists and fetches bundle objects scoped to an interface tag.
type Store interface {
	// ListManifests returns the manifests of every bundle stored for the
	// given interface.
	ListManifests(ctx context.Context, tag interfaces.Tag) ([]*bundle.Manifest, error)

	// Fetch returns the exact bytes of a bundle object.
	Fetch(ctx context.Context, tag interfaces.Tag, filename string) ([]byte, error)
}

func marshalManifest(m *bundle.Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func objectKey(tag interfaces.Tag, filename string) string {
	return fmt.Sprintf("%s/%s", tag, filename)
}

func manifestKey(tag interfaces.Tag, filename string) string {
	return objectKey(tag, filename) + ManifestSuffix
}
