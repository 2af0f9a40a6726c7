package verify_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsha/gpg-download-verifier/verify"
	"github.com/jsha/gpg-download-verifier/verify/entities"
	"github.com/jsha/gpg-download-verifier/verify/ports"
	"github.com/jsha/gpg-download-verifier/verify/truststore"
	"github.com/jsha/gpg-download-verifier/verify/values"
)

const artifactName = "foo-1.0.tar.gz"
const artifactContent = "release tarball bytes"

type fixture struct {
	dir      string
	root     string
	artifact string
	store    *truststore.Store
	crypto   *verify.MockCryptoVerifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	artifact := filepath.Join(dir, artifactName)
	require.NoError(t, os.WriteFile(artifact, []byte(artifactContent), 0o600))

	root := t.TempDir()
	store, err := truststore.NewStore(root)
	require.NoError(t, err)

	return &fixture{
		dir:      dir,
		root:     root,
		artifact: artifact,
		store:    store,
		crypto:   &verify.MockCryptoVerifier{Result: &ports.SignatureResult{SignerKeyID: "00000000DEADBEEF"}},
	}
}

func (f *fixture) writeDirectSig(t *testing.T) string {
	t.Helper()
	sig := f.artifact + ".sig"
	require.NoError(t, os.WriteFile(sig, []byte("sig"), 0o600))
	return sig
}

func (f *fixture) writeManifestChain(t *testing.T) (manifest, manifestSig string) {
	t.Helper()
	sum, err := values.ComputeDigest(values.SHA256, strings.NewReader(artifactContent))
	require.NoError(t, err)
	manifest = filepath.Join(f.dir, "SHA256SUMS")
	manifestSig = manifest + ".asc"
	require.NoError(t, os.WriteFile(manifest, []byte(sum.Value()+"  "+artifactName+"\n"), 0o600))
	require.NoError(t, os.WriteFile(manifestSig, []byte("sig"), 0o600))
	return manifest, manifestSig
}

func (f *fixture) trustDir() string {
	return filepath.Join(f.root, "foo")
}

func TestService_InvalidInvocation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := verify.NewService(f.store, f.crypto)

	_, err := svc.Verify(context.Background(), f.artifact+".sig")
	assert.ErrorIs(t, err, entities.ErrInvalidInvocation)
	assert.Zero(t, f.crypto.Calls, "no verification before the argument is validated")
}

func TestService_NoEvidence(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := verify.NewService(f.store, f.crypto)

	_, err := svc.Verify(context.Background(), f.artifact)
	assert.ErrorIs(t, err, entities.ErrNoEvidenceFound)

	_, statErr := os.Stat(f.trustDir())
	assert.True(t, os.IsNotExist(statErr), "no trust state without evidence")
}

func TestService_FirstContactThenPinned(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sig := f.writeDirectSig(t)
	svc := verify.NewService(f.store, f.crypto)

	result, err := svc.Verify(context.Background(), f.artifact)
	require.NoError(t, err)
	assert.True(t, result.Bootstrapped)
	assert.Equal(t, values.AutoKeyRetrieve, f.crypto.LastPolicy)
	assert.Equal(t, sig, f.crypto.LastSigPath)
	assert.Equal(t, f.artifact, f.crypto.LastTarget)
	assert.Equal(t, filepath.Join(f.trustDir(), truststore.KeyringFile), f.crypto.LastKeyring)

	result, err = svc.Verify(context.Background(), f.artifact)
	require.NoError(t, err)
	assert.False(t, result.Bootstrapped)
	assert.Equal(t, values.AlwaysTrustPinned, f.crypto.LastPolicy)
}

func TestService_ManifestChainTarget(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	manifest, manifestSig := f.writeManifestChain(t)
	svc := verify.NewService(f.store, f.crypto)

	result, err := svc.Verify(context.Background(), f.artifact)
	require.NoError(t, err)
	assert.Equal(t, values.ManifestChain, result.Evidence.Kind())
	assert.Equal(t, manifest, f.crypto.LastTarget, "signature is checked over the manifest")
	assert.Equal(t, manifestSig, f.crypto.LastSigPath)
}

func TestService_FailedFirstVerificationStillPins(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.writeDirectSig(t)
	f.crypto.Err = &entities.SignatureError{SignaturePath: "x", TargetPath: "y", Reason: "bad"}
	svc := verify.NewService(f.store, f.crypto)

	_, err := svc.Verify(context.Background(), f.artifact)
	assert.ErrorIs(t, err, entities.ErrVerificationFailed)

	_, statErr := os.Stat(f.trustDir())
	assert.NoError(t, statErr, "default policy keeps the bootstrapped store")
}

func TestService_PinOnFailureDisabled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.writeDirectSig(t)
	f.crypto.Err = &entities.SignatureError{SignaturePath: "x", TargetPath: "y", Reason: "bad"}
	svc := verify.NewService(f.store, f.crypto, verify.WithPinOnFailure(false))

	_, err := svc.Verify(context.Background(), f.artifact)
	assert.ErrorIs(t, err, entities.ErrVerificationFailed)

	_, statErr := os.Stat(f.trustDir())
	assert.True(t, os.IsNotExist(statErr), "failed bootstrap rolls the store back")

	// Later attempts are first contact again.
	f.crypto.Err = nil
	result, err := svc.Verify(context.Background(), f.artifact)
	require.NoError(t, err)
	assert.True(t, result.Bootstrapped)
}

func TestService_InteractiveBootstrap(t *testing.T) {
	t.Parallel()

	t.Run("confirmed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.writeDirectSig(t)
		f.crypto.IssuerID = 0xDEADBEEF
		prompter := &verify.MockPrompter{Interactive: true, Confirm: true}
		svc := verify.NewService(f.store, f.crypto, verify.WithPrompter(prompter))

		result, err := svc.Verify(context.Background(), f.artifact)
		require.NoError(t, err)
		assert.True(t, result.Bootstrapped)
		assert.True(t, prompter.Called)
		assert.Equal(t, "foo", prompter.PromptedPackage.String())
		assert.Equal(t, "00000000DEADBEEF", prompter.PromptedKeyID)
	})

	t.Run("declined removes trust state", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.writeDirectSig(t)
		prompter := &verify.MockPrompter{Interactive: true, Confirm: false}
		svc := verify.NewService(f.store, f.crypto, verify.WithPrompter(prompter))

		_, err := svc.Verify(context.Background(), f.artifact)
		assert.ErrorIs(t, err, entities.ErrVerificationFailed)
		assert.Zero(t, f.crypto.Calls)

		_, statErr := os.Stat(f.trustDir())
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("not asked on second contact", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.writeDirectSig(t)
		svc := verify.NewService(f.store, f.crypto)
		_, err := svc.Verify(context.Background(), f.artifact)
		require.NoError(t, err)

		prompter := &verify.MockPrompter{Interactive: true, Confirm: false}
		svc = verify.NewService(f.store, f.crypto, verify.WithPrompter(prompter))
		_, err = svc.Verify(context.Background(), f.artifact)
		require.NoError(t, err)
		assert.False(t, prompter.Called)
	})

	t.Run("non-interactive terminal skips prompt", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.writeDirectSig(t)
		prompter := &verify.MockPrompter{Interactive: false}
		svc := verify.NewService(f.store, f.crypto, verify.WithPrompter(prompter))

		_, err := svc.Verify(context.Background(), f.artifact)
		require.NoError(t, err)
		assert.False(t, prompter.Called)
	})
}
