// Package entities holds the verification domain objects and error taxonomy.
package entities

import (
	"path/filepath"

	"github.com/jsha/gpg-download-verifier/verify/values"
)

// Artifact is the downloaded file to be verified. Immutable once resolved.
type Artifact struct {
	path      string
	directory string
	baseName  string
	pkg       values.PackageID
}

// NewArtifact resolves an artifact from a path. The file does not need to
// exist yet; existence is checked during evidence discovery. Paths naming a
// detached signature are rejected before any filesystem access, since the
// tool must be pointed at the artifact, not its signature.
func NewArtifact(path string) (*Artifact, error) {
	base := filepath.Base(path)
	if values.IsSignatureFile(base) {
		return nil, &InvalidInvocationError{Path: path}
	}

	pkg, err := values.NewPackageID(base)
	if err != nil {
		return nil, &InvalidInvocationError{Path: path, Reason: err.Error()}
	}

	return &Artifact{
		path:      path,
		directory: filepath.Dir(path),
		baseName:  base,
		pkg:       pkg,
	}, nil
}

// Path returns the artifact path as given.
func (a *Artifact) Path() string { return a.path }

// Directory returns the directory evidence files are sought in.
func (a *Artifact) Directory() string { return a.directory }

// BaseName returns the artifact's file name.
func (a *Artifact) BaseName() string { return a.baseName }

// Package returns the package identity the artifact is verified under.
func (a *Artifact) Package() values.PackageID { return a.pkg }
