package values

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PackageID is the namespace key a downloaded artifact is verified under.
// It is derived from the artifact's file name by truncating at the first
// character that is not alphanumeric, so every release of the same package
// maps to the same identity: "foo-1.0.tar.gz" and "foo-2.3.tar.gz" are both
// "foo".
type PackageID struct {
	value string
}

// NewPackageID derives a package identity from an artifact file name.
// The derivation is deterministic; the file does not need to exist.
func NewPackageID(filename string) (PackageID, error) {
	base := filepath.Base(filename)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return PackageID{}, fmt.Errorf("cannot derive package identity from %q", filename)
	}

	cut := len(base)
	for i, r := range base {
		if !isAlphanumeric(r) {
			cut = i
			break
		}
	}
	if cut == 0 {
		return PackageID{}, fmt.Errorf("file name %q has no leading alphanumeric component", base)
	}

	return PackageID{value: base[:cut]}, nil
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// String returns the identity as a string.
func (p PackageID) String() string {
	return p.value
}

// IsZero reports whether the identity is unset.
func (p PackageID) IsZero() bool {
	return p.value == ""
}

// IsSignatureFile reports whether a file name denotes a detached signature
// rather than a verifiable artifact.
func IsSignatureFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".sig") || strings.HasSuffix(lower, ".asc")
}
