// Package verify orchestrates artifact verification: identity derivation,
// evidence discovery, trust-store resolution, and the cryptographic check.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsha/gpg-download-verifier/verify/entities"
	"github.com/jsha/gpg-download-verifier/verify/evidence"
	"github.com/jsha/gpg-download-verifier/verify/ports"
	"github.com/jsha/gpg-download-verifier/verify/truststore"
	"github.com/jsha/gpg-download-verifier/verify/values"
)

// Service wires evidence discovery, the trust store, and the crypto
// verifier into the complete verification use case.
type Service struct {
	locator      *evidence.Locator
	store        *truststore.Store
	crypto       ports.CryptoVerifier
	prompter     ports.BootstrapPrompter
	pinOnFailure bool
	logger       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLocator sets the evidence locator.
func WithLocator(l *evidence.Locator) ServiceOption {
	return func(s *Service) { s.locator = l }
}

// WithPrompter sets the interactive bootstrap prompter. Without one,
// first-contact bootstrap proceeds unattended.
func WithPrompter(p ports.BootstrapPrompter) ServiceOption {
	return func(s *Service) { s.prompter = p }
}

// WithPinOnFailure controls whether a failed first verification still
// leaves the package permanently bootstrapped. True preserves the
// historical behavior: once the store directory exists, later attempts use
// the pinned policy even though nothing was ever successfully verified.
// False rolls the store back so the next attempt may retrieve keys again.
func WithPinOnFailure(pin bool) ServiceOption {
	return func(s *Service) { s.pinOnFailure = pin }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a verification service. Store and crypto are required.
func NewService(store *truststore.Store, crypto ports.CryptoVerifier, opts ...ServiceOption) *Service {
	s := &Service{
		locator:      evidence.NewLocator(),
		store:        store,
		crypto:       crypto,
		pinOnFailure: true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the outcome of a successful verification.
type Result struct {
	Artifact     string
	Package      values.PackageID
	Evidence     values.Evidence
	Signature    *ports.SignatureResult
	Bootstrapped bool
}

// Verify runs the full verification of the artifact at path. A nil error
// means the artifact is authentic. Errors match exactly one of the
// entities sentinels: ErrInvalidInvocation, ErrNoEvidenceFound,
// ErrVerificationFailed, or ErrTrustBootstrapIO.
func (s *Service) Verify(ctx context.Context, path string) (*Result, error) {
	artifact, err := entities.NewArtifact(path)
	if err != nil {
		return nil, err
	}

	ev, err := s.locator.Locate(artifact)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("evidence resolved",
		"artifact", artifact.BaseName(),
		"kind", ev.Kind().String(),
		"signature", ev.SignaturePath())

	anchor, err := s.store.Resolve(artifact.Package())
	if err != nil {
		return nil, err
	}

	if anchor.Bootstrapped() {
		if err := s.confirmBootstrap(artifact, ev, anchor); err != nil {
			return nil, err
		}
	}

	sigResult, err := s.crypto.VerifyDetached(ctx, ev.SignaturePath(), ev.TargetPath(), anchor.KeyringPath(), anchor.Policy())
	if err != nil {
		if errors.Is(err, entities.ErrVerificationFailed) && anchor.Bootstrapped() && !s.pinOnFailure {
			if rbErr := s.store.Rollback(anchor); rbErr != nil {
				s.logger.Warn("rollback after failed bootstrap verification failed", "error", rbErr)
			}
		}
		return nil, err
	}

	return &Result{
		Artifact:     artifact.Path(),
		Package:      artifact.Package(),
		Evidence:     ev,
		Signature:    sigResult,
		Bootstrapped: anchor.Bootstrapped(),
	}, nil
}

// confirmBootstrap asks the user, when a prompter is configured and a
// terminal is present, before trusting a never-seen package. Declining
// removes the just-created store directory so no trust state is left
// behind.
func (s *Service) confirmBootstrap(artifact *entities.Artifact, ev values.Evidence, anchor *truststore.Anchor) error {
	if s.prompter == nil || !s.prompter.IsInteractive() {
		return nil
	}

	keyID, err := s.crypto.IssuerKeyID(ev.SignaturePath())
	if err != nil {
		return &entities.SignatureError{
			SignaturePath: ev.SignaturePath(),
			TargetPath:    ev.TargetPath(),
			Reason:        "cannot determine signer for bootstrap confirmation",
			Err:           err,
		}
	}

	ok, err := s.prompter.ConfirmBootstrap(artifact.Package(), fmt.Sprintf("%016X", keyID))
	if err != nil {
		return fmt.Errorf("bootstrap confirmation: %w", err)
	}
	if !ok {
		if rbErr := s.store.Rollback(anchor); rbErr != nil {
			s.logger.Warn("rollback after declined bootstrap failed", "error", rbErr)
		}
		return &entities.SignatureError{
			SignaturePath: ev.SignaturePath(),
			TargetPath:    ev.TargetPath(),
			Reason:        "bootstrap declined by user",
		}
	}
	return nil
}
