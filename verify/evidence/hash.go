// Package evidence discovers and validates the verification material
// colocated with a downloaded artifact: detached signatures and signed
// checksum manifests.
package evidence

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jsha/gpg-download-verifier/verify/values"
)

// HashVerifier computes an artifact's digest and tests it against a checksum
// manifest.
//
// The default match is an exact token comparison against the whitespace-
// separated fields of each manifest line. The historical behavior was a bare
// substring containment test over the whole manifest, which a digest that
// happens to be a substring of an unrelated longer token would incorrectly
// satisfy; that mode remains available for bit-for-bit compatibility.
type HashVerifier struct {
	legacySubstring bool
}

// NewHashVerifier creates a hash verifier. legacySubstring selects the old
// substring containment match instead of the exact per-token comparison.
func NewHashVerifier(legacySubstring bool) *HashVerifier {
	return &HashVerifier{legacySubstring: legacySubstring}
}

// Match computes the digest of targetPath under the given algorithm and
// reports whether the manifest lists it. A clean mismatch returns
// (false, nil); only unreadable files produce an error.
func (h *HashVerifier) Match(algorithm values.HashAlgorithm, manifestPath, targetPath string) (bool, error) {
	digest, err := computeFileDigest(algorithm, targetPath)
	if err != nil {
		return false, err
	}

	if h.legacySubstring {
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			return false, fmt.Errorf("read manifest %s: %w", manifestPath, err)
		}
		return strings.Contains(string(data), digest.Value()), nil
	}

	return manifestListsDigest(manifestPath, digest)
}

// manifestListsDigest scans the manifest line by line and reports whether
// any whitespace-separated field equals the digest exactly.
func manifestListsDigest(manifestPath string, digest values.Digest) (bool, error) {
	f, err := os.Open(manifestPath)
	if err != nil {
		return false, fmt.Errorf("read manifest %s: %w", manifestPath, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, field := range strings.Fields(scanner.Text()) {
			// BSD-style manifests wrap the digest as "SHA256 (file) = <hex>";
			// field splitting still yields the bare hex as its own token.
			if strings.EqualFold(field, digest.Value()) {
				return true, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("read manifest %s: %w", manifestPath, err)
	}
	return false, nil
}

func computeFileDigest(algorithm values.HashAlgorithm, path string) (values.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return values.Digest{}, fmt.Errorf("read target %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	digest, err := values.ComputeDigest(algorithm, f)
	if err != nil {
		return values.Digest{}, fmt.Errorf("digest %s: %w", path, err)
	}
	return digest, nil
}
