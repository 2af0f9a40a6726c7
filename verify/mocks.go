package verify

import (
	"context"

	"github.com/jsha/gpg-download-verifier/verify/ports"
	"github.com/jsha/gpg-download-verifier/verify/values"
)

// MockCryptoVerifier implements ports.CryptoVerifier for testing
type MockCryptoVerifier struct {
	Result *ports.SignatureResult
	Err    error

	IssuerID  uint64
	IssuerErr error

	Calls        int
	LastPolicy   values.TrustPolicy
	LastSigPath  string
	LastTarget   string
	LastKeyring  string
	IssuerCalled bool
}

func (m *MockCryptoVerifier) VerifyDetached(ctx context.Context, sigPath, targetPath, keyringPath string, policy values.TrustPolicy) (*ports.SignatureResult, error) {
	m.Calls++
	m.LastSigPath = sigPath
	m.LastTarget = targetPath
	m.LastKeyring = keyringPath
	m.LastPolicy = policy
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

func (m *MockCryptoVerifier) IssuerKeyID(sigPath string) (uint64, error) {
	m.IssuerCalled = true
	if m.IssuerErr != nil {
		return 0, m.IssuerErr
	}
	return m.IssuerID, nil
}

// MockPrompter implements ports.BootstrapPrompter
type MockPrompter struct {
	Interactive bool
	Confirm     bool
	Err         error

	PromptedPackage values.PackageID
	PromptedKeyID   string
	Called          bool
}

func (m *MockPrompter) IsInteractive() bool {
	return m.Interactive
}

func (m *MockPrompter) ConfirmBootstrap(pkg values.PackageID, keyID string) (bool, error) {
	m.Called = true
	m.PromptedPackage = pkg
	m.PromptedKeyID = keyID
	if m.Err != nil {
		return false, m.Err
	}
	return m.Confirm, nil
}

// MockKeyRetriever implements ports.KeyRetriever
type MockKeyRetriever struct {
	Key    []byte
	Err    error
	Calls  int
	LastID uint64
}

func (m *MockKeyRetriever) FetchKey(ctx context.Context, keyID uint64) ([]byte, error) {
	m.Calls++
	m.LastID = keyID
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Key, nil
}
