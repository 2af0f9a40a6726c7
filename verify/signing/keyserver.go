package signing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jsha/gpg-download-verifier/netutil"
)

// DefaultMaxKeySize bounds how much key material a single lookup may return.
const DefaultMaxKeySize int64 = 1 << 20 // 1 MiB

// HKPClient retrieves armored public keys from a single fixed HKP
// keyserver. The endpoint is decided at construction; nothing a signature
// or any other remote input says can redirect retrieval elsewhere.
type HKPClient struct {
	baseURL        string
	client         *http.Client
	pinnedCertPEM  []byte
	maxKeySize     int64
	timeout        time.Duration
	allowPlaintext bool
	logger         *slog.Logger
}

// HKPOption configures an HKPClient.
type HKPOption func(*HKPClient)

// WithPinnedCertificate validates the keyserver's TLS chain against the
// given PEM certificate(s) only, instead of the system trust store.
func WithPinnedCertificate(certPEM []byte) HKPOption {
	return func(c *HKPClient) { c.pinnedCertPEM = certPEM }
}

// WithMaxKeySize bounds the accepted response size.
func WithMaxKeySize(n int64) HKPOption {
	return func(c *HKPClient) {
		if n > 0 {
			c.maxKeySize = n
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HKPOption {
	return func(c *HKPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAllowPlaintext permits an http:// keyserver URL. Intended for tests.
func WithAllowPlaintext() HKPOption {
	return func(c *HKPClient) { c.allowPlaintext = true }
}

// WithHKPLogger sets the logger.
func WithHKPLogger(logger *slog.Logger) HKPOption {
	return func(c *HKPClient) { c.logger = logger }
}

// NewHKPClient creates a client for the given keyserver base URL, e.g.
// "https://keys.example.org".
func NewHKPClient(baseURL string, opts ...HKPOption) (*HKPClient, error) {
	c := &HKPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxKeySize: DefaultMaxKeySize,
		timeout:    30 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == "" {
		return nil, fmt.Errorf("keyserver URL is required")
	}
	if !netutil.IsHTTPS(c.baseURL) && !c.allowPlaintext {
		return nil, fmt.Errorf("keyserver URL %s must use https", netutil.StripCredentials(c.baseURL))
	}

	tlsConfig := netutil.TLSConfig()
	if c.pinnedCertPEM != nil {
		pinned, err := netutil.PinnedTLSConfig(c.pinnedCertPEM)
		if err != nil {
			return nil, fmt.Errorf("pinned keyserver certificate: %w", err)
		}
		tlsConfig = pinned
	}

	c.client = &http.Client{
		Timeout: c.timeout,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
		CheckRedirect: sameHostRedirect,
	}
	return c, nil
}

// FetchKey implements ports.KeyRetriever: it performs an HKP machine-
// readable lookup for the key id and returns the armored key block.
func (c *HKPClient) FetchKey(ctx context.Context, keyID uint64) ([]byte, error) {
	url := fmt.Sprintf("%s/pks/lookup?op=get&options=mr&search=0x%016X", c.baseURL, keyID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keyserver lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("keyserver has no key %016X", keyID)
	default:
		return nil, fmt.Errorf("keyserver returned %s", resp.Status)
	}

	body, err := io.ReadAll(netutil.NewLimitedReader(resp.Body, c.maxKeySize))
	if err != nil {
		return nil, fmt.Errorf("read keyserver response: %w", err)
	}
	if !bytes.Contains(body, []byte("BEGIN PGP PUBLIC KEY BLOCK")) {
		return nil, fmt.Errorf("keyserver response for %016X is not an armored public key", keyID)
	}

	c.logger.Info("retrieved key from keyserver",
		"key_id", fmt.Sprintf("%016X", keyID),
		"keyserver", netutil.StripCredentials(c.baseURL),
		"bytes", len(body))
	return body, nil
}

// sameHostRedirect refuses redirects that leave the keyserver's host.
func sameHostRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 5 {
		return fmt.Errorf("too many redirects")
	}
	if len(via) > 0 && req.URL.Host != via[0].URL.Host {
		return fmt.Errorf("refusing keyserver redirect to %s", req.URL.Host)
	}
	return nil
}
