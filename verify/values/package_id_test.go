package values_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsha/gpg-download-verifier/verify/values"
)

func TestNewPackageID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"version suffix", "foo-1.0.tar.gz", "foo"},
		{"underscore separator", "bar_2.3.zip", "bar"},
		{"dot separator", "baz.tar.gz", "baz"},
		{"no separator at all", "standalone", "standalone"},
		{"digits are part of identity", "abc123-4.5", "abc123"},
		{"path is reduced to base name", "/tmp/downloads/foo-1.0.tar.gz", "foo"},
		{"mixed case preserved", "LibreOffice-7.6.dmg", "LibreOffice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pkg, err := values.NewPackageID(tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pkg.String())
		})
	}
}

func TestNewPackageID_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := values.NewPackageID("foo-1.0.tar.gz")
	require.NoError(t, err)
	b, err := values.NewPackageID("foo-2.7.1.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewPackageID_Invalid(t *testing.T) {
	t.Parallel()

	t.Run("leading non-alphanumeric", func(t *testing.T) {
		t.Parallel()
		_, err := values.NewPackageID("-weird.tar.gz")
		require.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		_, err := values.NewPackageID("")
		require.Error(t, err)
	})
}

func TestIsSignatureFile(t *testing.T) {
	t.Parallel()

	assert.True(t, values.IsSignatureFile("foo.tar.gz.sig"))
	assert.True(t, values.IsSignatureFile("foo.tar.gz.asc"))
	assert.True(t, values.IsSignatureFile("SHA256SUMS.ASC"))
	assert.False(t, values.IsSignatureFile("foo.tar.gz"))
	assert.False(t, values.IsSignatureFile("foo.sig.tar.gz"))
}
