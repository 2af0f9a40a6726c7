package values

import "fmt"

// EvidenceKind distinguishes the two ways an artifact can be vouched for.
type EvidenceKind int

const (
	// DirectSignature is a detached signature over the artifact itself.
	DirectSignature EvidenceKind = iota
	// ManifestChain is a checksum manifest listing the artifact's digest,
	// plus a detached signature over the manifest.
	ManifestChain
)

// String returns the human-readable kind name.
func (k EvidenceKind) String() string {
	switch k {
	case DirectSignature:
		return "direct-signature"
	case ManifestChain:
		return "manifest-chain"
	default:
		return fmt.Sprintf("EvidenceKind(%d)", int(k))
	}
}

// Evidence is the verification material discovered next to an artifact.
// For a DirectSignature the signed target is the artifact; for a
// ManifestChain the signed target is promoted to the manifest, and the
// artifact is covered transitively through its digest entry.
type Evidence struct {
	kind          EvidenceKind
	signaturePath string
	targetPath    string
	manifestPath  string
	algorithm     HashAlgorithm // set for ManifestChain only
}

// NewDirectSignature builds evidence from a detached signature over the
// artifact itself.
func NewDirectSignature(artifactPath, sigPath string) Evidence {
	return Evidence{
		kind:          DirectSignature,
		signaturePath: sigPath,
		targetPath:    artifactPath,
	}
}

// NewManifestChain builds evidence from a validated checksum manifest and
// the manifest's own detached signature.
func NewManifestChain(manifestPath, manifestSigPath string, algorithm HashAlgorithm) Evidence {
	return Evidence{
		kind:          ManifestChain,
		signaturePath: manifestSigPath,
		targetPath:    manifestPath,
		manifestPath:  manifestPath,
		algorithm:     algorithm,
	}
}

// Kind returns the evidence kind.
func (e Evidence) Kind() EvidenceKind { return e.kind }

// SignaturePath returns the detached signature file to verify.
func (e Evidence) SignaturePath() string { return e.signaturePath }

// TargetPath returns the file the signature covers: the artifact for a
// direct signature, the manifest for a manifest chain.
func (e Evidence) TargetPath() string { return e.targetPath }

// ManifestPath returns the manifest path, or "" for a direct signature.
func (e Evidence) ManifestPath() string { return e.manifestPath }

// Algorithm returns the manifest's hash algorithm, or "" for a direct
// signature.
func (e Evidence) Algorithm() HashAlgorithm { return e.algorithm }
