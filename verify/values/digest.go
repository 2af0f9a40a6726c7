package values

import (
	"crypto/md5"  //nolint:gosec // manifest compatibility
	"crypto/sha1" //nolint:gosec // manifest compatibility
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// HashAlgorithm identifies a checksum algorithm understood by sumfile
// manifests. The canonical form is lowercase ("sha256"); ManifestPrefix
// returns the uppercase form manifest file names start with ("SHA256SUMS").
type HashAlgorithm string

const (
	SHA512 HashAlgorithm = "sha512"
	SHA256 HashAlgorithm = "sha256"
	SHA1   HashAlgorithm = "sha1"
	MD5    HashAlgorithm = "md5"
)

// AlgorithmPrecedence returns the supported algorithms strongest first.
// Evidence discovery tries them in this order and the first algorithm that
// yields a validated manifest wins.
func AlgorithmPrecedence() []HashAlgorithm {
	return []HashAlgorithm{SHA512, SHA256, SHA1, MD5}
}

// ParseHashAlgorithm parses an algorithm name, accepting either case.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch HashAlgorithm(strings.ToLower(s)) {
	case SHA512:
		return SHA512, nil
	case SHA256:
		return SHA256, nil
	case SHA1:
		return SHA1, nil
	case MD5:
		return MD5, nil
	default:
		return "", fmt.Errorf("unsupported digest algorithm: %s", s)
	}
}

// String returns the canonical lowercase name.
func (a HashAlgorithm) String() string {
	return string(a)
}

// ManifestPrefix returns the file-name prefix manifests for this algorithm
// carry, e.g. "SHA256" for SHA256SUMS and SHA256SUMS.txt.
func (a HashAlgorithm) ManifestPrefix() string {
	return strings.ToUpper(string(a))
}

// New returns a fresh hash state for the algorithm.
func (a HashAlgorithm) New() hash.Hash {
	switch a {
	case SHA512:
		return sha512.New()
	case SHA256:
		return sha256.New()
	case SHA1:
		return sha1.New() //nolint:gosec
	case MD5:
		return md5.New() //nolint:gosec
	default:
		panic(fmt.Sprintf("unknown hash algorithm %q", string(a)))
	}
}

// Digest represents a content hash with its algorithm.
type Digest struct {
	algorithm HashAlgorithm
	value     string // hex-encoded
}

// NewDigest creates a digest from an algorithm name and hex value.
func NewDigest(algorithm, hexValue string) (Digest, error) {
	algo, err := ParseHashAlgorithm(algorithm)
	if err != nil {
		return Digest{}, err
	}
	return Digest{algorithm: algo, value: strings.ToLower(hexValue)}, nil
}

// ParseDigest parses a digest string of the form "sha256:abc123...".
func ParseDigest(s string) (Digest, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Digest{}, fmt.Errorf("invalid digest format: %s", s)
	}
	return NewDigest(parts[0], parts[1])
}

// ComputeDigest computes the digest of r under the given algorithm.
func ComputeDigest(algorithm HashAlgorithm, r io.Reader) (Digest, error) {
	h := algorithm.New()
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, err
	}
	return Digest{
		algorithm: algorithm,
		value:     hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// String returns the canonical digest string.
func (d Digest) String() string {
	return fmt.Sprintf("%s:%s", d.algorithm, d.value)
}

// Algorithm returns the hash algorithm.
func (d Digest) Algorithm() HashAlgorithm {
	return d.algorithm
}

// Value returns the hex-encoded hash value.
func (d Digest) Value() string {
	return d.value
}

// Equals checks equality with another digest.
func (d Digest) Equals(other Digest) bool {
	return d.algorithm == other.algorithm && d.value == other.value
}
