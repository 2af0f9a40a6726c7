// Package signing implements the OpenPGP adapters: detached signature
// verification against a per-package keyring, and key retrieval from an HKP
// keyserver over a pinned transport.
package signing

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/jsha/gpg-download-verifier/verify/entities"
	"github.com/jsha/gpg-download-verifier/verify/ports"
	"github.com/jsha/gpg-download-verifier/verify/values"
)

// GPGVerifier implements ports.CryptoVerifier with OpenPGP detached
// signatures. Key retrieval, when the policy permits it, goes exclusively
// through the configured retriever; a preferred-keyserver hint carried by
// the signature itself is never honored.
type GPGVerifier struct {
	retriever ports.KeyRetriever
	logger    *slog.Logger
}

// GPGOption configures a GPGVerifier.
type GPGOption func(*GPGVerifier)

// WithKeyRetriever sets the key retriever used during bootstrap.
func WithKeyRetriever(r ports.KeyRetriever) GPGOption {
	return func(v *GPGVerifier) { v.retriever = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GPGOption {
	return func(v *GPGVerifier) { v.logger = logger }
}

// NewGPGVerifier creates a verifier with the given options. Without a key
// retriever only pinned verification can succeed.
func NewGPGVerifier(opts ...GPGOption) *GPGVerifier {
	v := &GPGVerifier{logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IssuerKeyID extracts the signing key id a detached signature claims to be
// issued by, without verifying anything.
func (v *GPGVerifier) IssuerKeyID(sigPath string) (uint64, error) {
	sig, _, err := readSignaturePacket(sigPath)
	if err != nil {
		return 0, err
	}
	id, err := issuerOf(sig)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", sigPath, err)
	}
	return id, nil
}

// VerifyDetached implements ports.CryptoVerifier.
func (v *GPGVerifier) VerifyDetached(ctx context.Context, sigPath, targetPath, keyringPath string, policy values.TrustPolicy) (*ports.SignatureResult, error) {
	sig, armored, err := readSignaturePacket(sigPath)
	if err != nil {
		return nil, &entities.SignatureError{SignaturePath: sigPath, TargetPath: targetPath, Reason: "malformed signature", Err: err}
	}

	issuer, err := issuerOf(sig)
	if err != nil {
		return nil, &entities.SignatureError{SignaturePath: sigPath, TargetPath: targetPath, Reason: err.Error()}
	}

	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("load keyring %s: %w", keyringPath, err)
	}

	keyRetrieved := false
	if len(keyring.KeysById(issuer)) == 0 {
		if policy != values.AutoKeyRetrieve {
			return nil, &entities.SignatureError{
				SignaturePath: sigPath,
				TargetPath:    targetPath,
				Reason:        fmt.Sprintf("signer key %016X is not pinned for this package", issuer),
			}
		}
		if v.retriever == nil {
			return nil, &entities.SignatureError{
				SignaturePath: sigPath,
				TargetPath:    targetPath,
				Reason:        "signer key unknown and no keyserver configured",
			}
		}

		v.logger.Info("retrieving unknown signer key", "key_id", fmt.Sprintf("%016X", issuer))
		armoredKey, err := v.retriever.FetchKey(ctx, issuer)
		if err != nil {
			return nil, &entities.SignatureError{
				SignaturePath: sigPath,
				TargetPath:    targetPath,
				Reason:        fmt.Sprintf("key retrieval for %016X failed", issuer),
				Err:           err,
			}
		}
		if err := appendArmoredKey(keyringPath, armoredKey); err != nil {
			return nil, fmt.Errorf("pin retrieved key: %w", err)
		}
		keyring, err = loadKeyring(keyringPath)
		if err != nil {
			return nil, fmt.Errorf("reload keyring %s: %w", keyringPath, err)
		}
		keyRetrieved = true
	}

	signer, err := v.check(keyring, sigPath, targetPath, armored)
	if err != nil {
		return nil, &entities.SignatureError{SignaturePath: sigPath, TargetPath: targetPath, Err: err}
	}

	result := &ports.SignatureResult{
		SignerKeyID:  fmt.Sprintf("%016X", signer.PrimaryKey.KeyId),
		KeyRetrieved: keyRetrieved,
	}
	if sig.CreationTime != (time.Time{}) {
		result.SignedAt = sig.CreationTime
	}
	for name := range signer.Identities {
		result.SignerUserID = name
		break
	}
	return result, nil
}

// check runs the actual cryptographic verification.
func (v *GPGVerifier) check(keyring openpgp.EntityList, sigPath, targetPath string, armored bool) (*openpgp.Entity, error) {
	target, err := os.Open(targetPath)
	if err != nil {
		return nil, fmt.Errorf("open target: %w", err)
	}
	defer func() { _ = target.Close() }()

	sigFile, err := os.Open(sigPath)
	if err != nil {
		return nil, fmt.Errorf("open signature: %w", err)
	}
	defer func() { _ = sigFile.Close() }()

	if armored {
		return openpgp.CheckArmoredDetachedSignature(keyring, target, sigFile, nil)
	}
	return openpgp.CheckDetachedSignature(keyring, target, sigFile, nil)
}

// KeyInfo describes one pinned public key.
type KeyInfo struct {
	KeyID     string
	UserID    string
	CreatedAt time.Time
}

// ListKeys returns the primary keys pinned in a keyring file. A missing
// keyring yields an empty list.
func ListKeys(keyringPath string) ([]KeyInfo, error) {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return nil, err
	}

	infos := make([]KeyInfo, 0, len(keyring))
	for _, entity := range keyring {
		info := KeyInfo{
			KeyID:     fmt.Sprintf("%016X", entity.PrimaryKey.KeyId),
			CreatedAt: entity.PrimaryKey.CreationTime,
		}
		for name := range entity.Identities {
			info.UserID = name
			break
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// loadKeyring reads a binary keyring file, treating a missing file as an
// empty keyring.
func loadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return openpgp.EntityList{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return openpgp.ReadKeyRing(f)
}

// appendArmoredKey decodes an armored public key block and appends its
// entities to the binary keyring at path, creating it owner-only.
func appendArmoredKey(path string, armoredKey []byte) error {
	keys, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(armoredKey))
	if err != nil {
		return fmt.Errorf("parse retrieved key: %w", err)
	}
	if len(keys) == 0 {
		return fmt.Errorf("retrieved key block contains no keys")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	for _, entity := range keys {
		if err := entity.Serialize(f); err != nil {
			return fmt.Errorf("write key %016X: %w", entity.PrimaryKey.KeyId, err)
		}
	}
	return nil
}

// readSignaturePacket parses a detached signature file, armored or binary,
// into its signature packet.
func readSignaturePacket(sigPath string) (*packet.Signature, bool, error) {
	data, err := os.ReadFile(sigPath)
	if err != nil {
		return nil, false, err
	}

	armored := bytes.Contains(data[:min(len(data), 64)], []byte("-----BEGIN PGP"))
	reader := bytes.NewReader(data)

	var body = io.Reader(reader)
	if armored {
		block, err := armor.Decode(reader)
		if err != nil {
			return nil, true, fmt.Errorf("decode armor: %w", err)
		}
		body = block.Body
	}

	p, err := packet.Read(body)
	if err != nil {
		return nil, armored, fmt.Errorf("read signature packet: %w", err)
	}
	sig, ok := p.(*packet.Signature)
	if !ok {
		return nil, armored, fmt.Errorf("unexpected packet type %T in signature file", p)
	}
	return sig, armored, nil
}

// issuerOf returns the key id a signature claims as its issuer, falling
// back to the issuer fingerprint when only that subpacket is present.
func issuerOf(sig *packet.Signature) (uint64, error) {
	if sig.IssuerKeyId != nil && *sig.IssuerKeyId != 0 {
		return *sig.IssuerKeyId, nil
	}
	if fp := sig.IssuerFingerprint; len(fp) >= 8 {
		return binary.BigEndian.Uint64(fp[len(fp)-8:]), nil
	}
	return 0, fmt.Errorf("signature carries no issuer key id")
}
