package netutil_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsha/gpg-download-verifier/netutil"
)

func selfSignedPEM(t *testing.T) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "keys.example.org"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestTLSConfig(t *testing.T) {
	t.Parallel()

	cfg := netutil.TLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.NotEmpty(t, cfg.CipherSuites)
	assert.False(t, cfg.InsecureSkipVerify)
}

func TestPinnedTLSConfig(t *testing.T) {
	t.Parallel()

	t.Run("valid certificate", func(t *testing.T) {
		t.Parallel()
		cfg, err := netutil.PinnedTLSConfig(selfSignedPEM(t))
		require.NoError(t, err)
		assert.NotNil(t, cfg.RootCAs, "root pool replaced with the pinned pool")
		assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	})

	t.Run("garbage input", func(t *testing.T) {
		t.Parallel()
		_, err := netutil.PinnedTLSConfig([]byte("not pem"))
		require.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		_, err := netutil.PinnedTLSConfig(nil)
		require.Error(t, err)
	})
}
