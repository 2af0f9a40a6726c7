// Package truststore owns the per-package trust-anchor directories and
// decides the trust policy for each verification attempt.
//
// The model is trust-on-first-use: the first time a package identity is
// seen, its directory is created and the invocation is allowed to retrieve
// the signer's key (the unsafe bootstrap). Every later invocation for the
// same package finds the directory already present and is restricted to the
// keys pinned inside it. No code path deletes, re-bootstraps, or merges
// store directories except an explicit rollback of a store created in the
// same invocation.
package truststore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/jsha/gpg-download-verifier/verify/entities"
	"github.com/jsha/gpg-download-verifier/verify/values"
)

// KeyringFile is the file inside each anchor directory holding the pinned
// public keys, as concatenated binary OpenPGP key packets.
const KeyringFile = "pubring.gpg"

// Store resolves trust anchors under a fixed root directory, one
// subdirectory per package identity.
type Store struct {
	root   string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a store rooted at root, creating the root with
// owner-only access if necessary.
func NewStore(root string, opts ...Option) (*Store, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		root = filepath.Join(home, ".gpg-download-verifier")
	}

	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create trust root: %w", err)
	}

	s := &Store{root: root, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the trust root directory.
func (s *Store) Root() string {
	return s.root
}

// Anchor is the resolved trust state for one package in one invocation.
type Anchor struct {
	pkg          values.PackageID
	dir          string
	bootstrapped bool
}

// Package returns the package identity the anchor belongs to.
func (a *Anchor) Package() values.PackageID { return a.pkg }

// Dir returns the anchor's directory.
func (a *Anchor) Dir() string { return a.dir }

// KeyringPath returns the path of the anchor's pinned keyring.
func (a *Anchor) KeyringPath() string { return filepath.Join(a.dir, KeyringFile) }

// Bootstrapped reports whether this invocation created the anchor, i.e.
// whether this is first contact with the package.
func (a *Anchor) Bootstrapped() bool { return a.bootstrapped }

// Policy returns the trust policy the anchor's state selects: key retrieval
// is permitted on first contact only.
func (a *Anchor) Policy() values.TrustPolicy {
	if a.bootstrapped {
		return values.AutoKeyRetrieve
	}
	return values.AlwaysTrustPinned
}

// Resolve returns the trust anchor for a package, creating its directory
// with owner-only access on first contact. A file lock scoped to the
// package id serializes concurrent resolutions, so exactly one of two
// racing first-contact invocations observes the bootstrap state.
func (s *Store) Resolve(pkg values.PackageID) (*Anchor, error) {
	dir, err := s.packageDir(pkg)
	if err != nil {
		return nil, &entities.BootstrapError{Package: pkg, Err: err}
	}

	lock, err := s.acquireLock(pkg)
	if err != nil {
		return nil, &entities.BootstrapError{Package: pkg, Err: err}
	}
	defer func() { _ = lock.Unlock() }()

	switch err := os.Mkdir(dir, 0o700); {
	case err == nil:
		s.logger.Info("bootstrapping trust store for new package", "package", pkg.String(), "dir", dir)
		return &Anchor{pkg: pkg, dir: dir, bootstrapped: true}, nil
	case os.IsExist(err):
		return &Anchor{pkg: pkg, dir: dir, bootstrapped: false}, nil
	default:
		return nil, &entities.BootstrapError{Package: pkg, Err: err}
	}
}

// Rollback removes an anchor directory created by this invocation. It is a
// no-op for anchors that already existed, so a pinned package can never be
// un-pinned this way.
func (s *Store) Rollback(a *Anchor) error {
	if !a.bootstrapped {
		return nil
	}

	lock, err := s.acquireLock(a.pkg)
	if err != nil {
		return &entities.BootstrapError{Package: a.pkg, Err: err}
	}
	defer func() { _ = lock.Unlock() }()

	s.logger.Info("rolling back bootstrapped trust store", "package", a.pkg.String(), "dir", a.dir)
	if err := os.RemoveAll(a.dir); err != nil {
		return &entities.BootstrapError{Package: a.pkg, Err: err}
	}
	a.bootstrapped = false
	return nil
}

// acquireLock takes the per-package file lock, blocking until it is held.
func (s *Store) acquireLock(pkg values.PackageID) (*flock.Flock, error) {
	lockDir := filepath.Join(s.root, ".locks")
	if err := os.MkdirAll(lockDir, 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(filepath.Join(lockDir, pkg.String()+".lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("lock package %s: %w", pkg, err)
	}
	return lock, nil
}

// packageDir resolves the anchor directory for a package, refusing anything
// that would escape the trust root. Package identities are alphanumeric by
// construction, so this is belt and braces against a crafted value.
func (s *Store) packageDir(pkg values.PackageID) (string, error) {
	name := pkg.String()
	if name == "" {
		return "", fmt.Errorf("empty package identity")
	}
	if filepath.IsAbs(name) || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid package identity %q", name)
	}

	cleanRoot := filepath.Clean(s.root)
	cleanPath := filepath.Clean(filepath.Join(cleanRoot, name))
	if !strings.HasPrefix(cleanPath, cleanRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("package identity %q escapes trust root", name)
	}
	return cleanPath, nil
}
