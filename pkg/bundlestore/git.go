package bundlestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gogithttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/i18nhub/translation-migrator/pkg/bundle"
	"github.com/i18nhub/translation-migrator/pkg/interfaces"
)

// GitConfig configures a Git-backed bundle store. Front-end export pipelines
// commit bundles and manifests to a repository using the standard layout
// (<interface>/<filename> plus manifest sidecars), optionally under Subdir.
type GitConfig struct {
	RepoURL      string
	Branch       string        // Defaults to "main".
	Subdir       string        // Optional path inside the repo.
	AuthToken    string        // Optional token for HTTPS auth.
	SyncInterval time.Duration // Minimum age before a pull. Defaults to 5m.
	Logger       *slog.Logger
}

// GitStore serves bundles from a shallow clone of a Git repository,
// pulling when the working copy is older than the sync interval.
type GitStore struct {
	cfg      GitConfig
	mu       sync.Mutex
	cloneDir string
	lastSync time.Time
	headSHA  string
}

// NewGitStore validates the configuration; the clone happens lazily on
// first use so that server startup does not depend on the remote.
func NewGitStore(cfg GitConfig) (*GitStore, error) {
	if cfg.RepoURL == "" {
		return nil, fmt.Errorf("git bundle store requires a repo URL")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &GitStore{cfg: cfg}, nil
}

// HeadSHA returns the commit the working copy is at, for provenance.
func (s *GitStore) HeadSHA() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headSHA
}

// Close removes the working copy.
func (s *GitStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cloneDir != "" {
		os.RemoveAll(s.cloneDir)
		s.cloneDir = ""
	}
}

// ListManifests implements Store.
func (s *GitStore) ListManifests(ctx context.Context, tag interfaces.Tag) ([]*bundle.Manifest, error) {
	root, err := s.ensureCurrent(ctx)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(root, string(tag))
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
func (s *GitStore) Fetch(ctx context.Context, tag interfaces.Tag, filename string) ([]byte, error) {
	root, err := s.ensureCurrent(ctx)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(root, string(tag), filepath.Base(filename)))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch bundle %s/%s: %w", tag, filename, err)
	}
	return data, nil
}

// ensureCurrent clones on first use and pulls when the working copy is older
// than the sync interval. Returns the directory to read bundles from.
func (s *GitStore) ensureCurrent(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cloneDir == "" {
		if err := s.clone(ctx); err != nil {
			return "", err
		}
	} else if time.Since(s.lastSync) > s.cfg.SyncInterval {
		if err := s.pull(ctx); err != nil {
			// The working copy is still usable; log and serve stale data.
			s.cfg.Logger.Warn("git bundle store pull failed, serving stale working copy",
				"repo", s.cfg.RepoURL, "error", err)
		}
		s.lastSync = time.Now()
	}

	root := s.cloneDir
	if s.cfg.Subdir != "" {
		root = filepath.Join(root, s.cfg.Subdir)
	}
	return root, nil
}

func (s *GitStore) clone(ctx context.Context) error {
	dir, err := os.MkdirTemp("", "bundle-git-*")
	if err != nil {
		return fmt.Errorf("create clone dir: %w", err)
	}

	opts := &gogit.CloneOptions{
		URL:           s.cfg.RepoURL,
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Depth:         1,
	}
	if s.cfg.AuthToken != "" {
		opts.Auth = &gogithttp.BasicAuth{Username: "git", Password: s.cfg.AuthToken}
	}

	repo, err := gogit.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("clone %s: %w", s.cfg.RepoURL, err)
	}

	s.cloneDir = dir
	s.lastSync = time.Now()
	s.updateHead(repo)
	s.cfg.Logger.Info("cloned bundle repo", "repo", s.cfg.RepoURL, "branch", s.cfg.Branch, "head", s.headSHA)
	return nil
}

func (s *GitStore) pull(ctx context.Context) error {
	repo, err := gogit.PlainOpen(s.cloneDir)
	if err != nil {
		return fmt.Errorf("open working copy: %w", err)
	}
	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	opts := &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
	}
	if s.cfg.AuthToken != "" {
		opts.Auth = &gogithttp.BasicAuth{Username: "git", Password: s.cfg.AuthToken}
	}

	err = w.PullContext(ctx, opts)
	if err == gogit.NoErrAlreadyUpToDate {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	s.updateHead(repo)
	s.cfg.Logger.Info("bundle repo updated", "repo", s.cfg.RepoURL, "head", s.headSHA)
	return nil
}

func (s *GitStore) updateHead(repo *gogit.Repository) {
	if ref, err := repo.Head(); err == nil {
		s.headSHA = ref.Hash().String()
	}
}
