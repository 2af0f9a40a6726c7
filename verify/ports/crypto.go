// Package ports defines the interfaces the verification service depends on.
package ports

import (
	"context"
	"time"

	"github.com/jsha/gpg-download-verifier/verify/values"
)

// SignatureResult contains the details of a successful verification.
type SignatureResult struct {
	SignedAt     time.Time
	SignerKeyID  string
	SignerUserID string
	KeyRetrieved bool
}

// CryptoVerifier checks detached signatures against a per-package keyring.
// Under values.AutoKeyRetrieve it may fetch an unknown signer's key through
// its configured retriever; under values.AlwaysTrustPinned it must verify
// using only keys already present in keyringDir.
type CryptoVerifier interface {
	// VerifyDetached verifies sigPath over targetPath against the keyring
	// at keyringPath. It returns a *entities.SignatureError (matching
	// entities.ErrVerificationFailed) when the signature is invalid or the
	// signer is not trusted.
	VerifyDetached(ctx context.Context, sigPath, targetPath, keyringPath string, policy values.TrustPolicy) (*SignatureResult, error)

	// IssuerKeyID extracts the signing key id a detached signature claims
	// to be issued by, without verifying anything.
	IssuerKeyID(sigPath string) (uint64, error)
}

// KeyRetriever fetches public key material for a key id. Implementations
// talk only to their configured keyserver; any keyserver hint embedded in a
// signature is ignored.
type KeyRetriever interface {
	FetchKey(ctx context.Context, keyID uint64) ([]byte, error)
}

// BootstrapPrompter asks the user to confirm trusting a new package on
// first contact. A nil prompter means bootstrap proceeds unattended.
type BootstrapPrompter interface {
	// IsInteractive checks whether prompting is possible at all.
	IsInteractive() bool

	// ConfirmBootstrap asks whether to trust keyID for pkg.
	ConfirmBootstrap(pkg values.PackageID, keyID string) (bool, error)
}
