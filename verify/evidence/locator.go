package evidence

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jsha/gpg-download-verifier/verify/entities"
	"github.com/jsha/gpg-download-verifier/verify/values"
)

// Locator discovers the applicable verification evidence for an artifact.
// Evidence is only ever sought by exact co-location: files in the artifact's
// own directory, by derived naming. Nothing is searched recursively or
// fetched remotely.
type Locator struct {
	hasher *HashVerifier
	logger *slog.Logger
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

// WithLegacySubstringMatch selects the historical substring containment
// manifest match instead of the exact per-token comparison.
func WithLegacySubstringMatch(enabled bool) LocatorOption {
	return func(l *Locator) { l.hasher = NewHashVerifier(enabled) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LocatorOption {
	return func(l *Locator) { l.logger = logger }
}

// NewLocator creates a Locator with the given options.
func NewLocator(opts ...LocatorOption) *Locator {
	l := &Locator{
		hasher: NewHashVerifier(false),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate resolves the evidence for an artifact. Candidates are tried in a
// single priority order, first success wins:
//
//  1. <artifact>.sig, then <artifact>.asc — a detached signature over the
//     artifact itself.
//  2. For each hash algorithm strongest first, every manifest in the
//     directory named <ALGO>* that mentions the artifact, lists its digest,
//     and has a detached signature of its own.
//
// Returns an error matching entities.ErrNoEvidenceFound when every
// candidate is exhausted.
func (l *Locator) Locate(art *entities.Artifact) (values.Evidence, error) {
	for _, ext := range []string{".sig", ".asc"} {
		sigPath := art.Path() + ext
		if fileExists(sigPath) {
			l.logger.Debug("found direct signature", "artifact", art.BaseName(), "signature", sigPath)
			return values.NewDirectSignature(art.Path(), sigPath), nil
		}
	}

	entries, err := os.ReadDir(art.Directory())
	if err != nil {
		return values.Evidence{}, fmt.Errorf("list %s: %w", art.Directory(), err)
	}

	for _, algorithm := range values.AlgorithmPrecedence() {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ev, ok, err := l.tryManifest(art, algorithm, entry.Name())
			if err != nil {
				return values.Evidence{}, err
			}
			if ok {
				return ev, nil
			}
		}
	}

	return values.Evidence{}, &entities.EvidenceNotFoundError{Artifact: art.Path()}
}

// tryManifest checks one directory entry as a manifest candidate for the
// given algorithm.
func (l *Locator) tryManifest(art *entities.Artifact, algorithm values.HashAlgorithm, name string) (values.Evidence, bool, error) {
	matched, err := doublestar.Match(algorithm.ManifestPrefix()+"*", name)
	if err != nil || !matched {
		return values.Evidence{}, false, nil
	}
	// SHA256SUMS.asc matches the prefix too but is a signature, not a manifest.
	if values.IsSignatureFile(name) {
		return values.Evidence{}, false, nil
	}

	manifestPath := filepath.Join(art.Directory(), name)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return values.Evidence{}, false, fmt.Errorf("read manifest %s: %w", manifestPath, err)
	}
	if !bytes.Contains(data, []byte(art.BaseName())) {
		return values.Evidence{}, false, nil
	}

	ok, err := l.hasher.Match(algorithm, manifestPath, art.Path())
	if err != nil {
		return values.Evidence{}, false, err
	}
	if !ok {
		l.logger.Debug("manifest mentions artifact but digest does not match",
			"manifest", name, "algorithm", algorithm.String())
		return values.Evidence{}, false, nil
	}

	sigPath, ok := findManifestSignature(manifestPath)
	if !ok {
		l.logger.Debug("matching manifest has no signature of its own", "manifest", name)
		return values.Evidence{}, false, nil
	}

	l.logger.Debug("found manifest chain",
		"artifact", art.BaseName(), "manifest", name, "algorithm", algorithm.String())
	return values.NewManifestChain(manifestPath, sigPath, algorithm), true, nil
}

// findManifestSignature looks for the manifest's own detached signature:
// <m>.sig, <m>.asc, and for a .txt manifest also <m minus .txt>.sig and
// <m minus .txt>.asc.
func findManifestSignature(manifestPath string) (string, bool) {
	candidates := []string{manifestPath + ".sig", manifestPath + ".asc"}
	if stem := strings.TrimSuffix(manifestPath, ".txt"); stem != manifestPath {
		candidates = append(candidates, stem+".sig", stem+".asc")
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
