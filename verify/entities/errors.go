package entities

import (
	"errors"
	"fmt"

	"github.com/jsha/gpg-download-verifier/verify/values"
)

// Sentinel errors for common error patterns.
// These allow both errors.Is() checks and errors.As() for detailed information.
var (
	// ErrInvalidInvocation is returned when the tool is pointed at a
	// signature file instead of a verifiable artifact.
	ErrInvalidInvocation = errors.New("invalid invocation")

	// ErrNoEvidenceFound is returned when no usable signature or matching
	// checksum manifest exists next to the artifact.
	ErrNoEvidenceFound = errors.New("no verification evidence found")

	// ErrVerificationFailed is returned when evidence was located but the
	// cryptographic check did not pass. Unlike ErrNoEvidenceFound this is a
	// genuine authenticity failure, not a setup problem.
	ErrVerificationFailed = errors.New("signature verification failed")

	// ErrTrustBootstrapIO is returned when the per-package trust store
	// cannot be created or accessed.
	ErrTrustBootstrapIO = errors.New("trust store access failed")
)

// InvalidInvocationError indicates the argument was not a verifiable artifact.
type InvalidInvocationError struct {
	Path   string
	Reason string
}

func (e *InvalidInvocationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid invocation: %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("invalid invocation: %s is a signature file, pass the artifact it signs", e.Path)
}

// Is implements error matching for errors.Is() checks.
func (e *InvalidInvocationError) Is(target error) bool {
	return target == ErrInvalidInvocation
}

// EvidenceNotFoundError indicates no signature or matching manifest was
// located alongside the artifact.
type EvidenceNotFoundError struct {
	Artifact string
}

func (e *EvidenceNotFoundError) Error() string {
	return fmt.Sprintf("no signature or matching checksum manifest found for %s", e.Artifact)
}

// Is implements error matching for errors.Is() checks.
func (e *EvidenceNotFoundError) Is(target error) bool {
	return target == ErrNoEvidenceFound
}

// SignatureError indicates evidence was found but did not verify.
type SignatureError struct {
	SignaturePath string
	TargetPath    string
	Reason        string
	Err           error
}

func (e *SignatureError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("signature %s over %s did not verify: %s", e.SignaturePath, e.TargetPath, e.Reason)
	}
	return fmt.Sprintf("signature %s over %s did not verify", e.SignaturePath, e.TargetPath)
}

// Is implements error matching for errors.Is() checks.
func (e *SignatureError) Is(target error) bool {
	return target == ErrVerificationFailed
}

// Unwrap exposes the underlying cryptographic error, if any.
func (e *SignatureError) Unwrap() error {
	return e.Err
}

// BootstrapError indicates the trust store for a package could not be
// created or accessed.
type BootstrapError struct {
	Package values.PackageID
	Err     error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("trust store for package %s: %v", e.Package, e.Err)
}

// Is implements error matching for errors.Is() checks.
func (e *BootstrapError) Is(target error) bool {
	return target == ErrTrustBootstrapIO
}

// Unwrap exposes the underlying I/O error.
func (e *BootstrapError) Unwrap() error {
	return e.Err
}
