// Package netutil provides the hardened transport pieces for keyserver
// access: a TLS configuration pinned to a locally shipped certificate and a
// size-limited reader for untrusted response bodies.
package netutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
)

// TLSConfig returns a secure TLS configuration with TLS 1.2+ minimum.
func TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			// TLS 1.3 cipher suites are selected automatically when TLS 1.3 is used
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		},
	}
}

// PinnedTLSConfig returns a TLS configuration whose root pool contains only
// the given PEM-encoded certificate(s). Connections validate against the
// pinned certificate instead of the system trust store, so a mis-issued
// public CA certificate cannot impersonate the keyserver.
func PinnedTLSConfig(certPEM []byte) (*tls.Config, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(certPEM) {
		return nil, fmt.Errorf("no usable certificates in pinned PEM data")
	}

	cfg := TLSConfig()
	cfg.RootCAs = pool
	return cfg, nil
}
