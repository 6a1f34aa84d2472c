package cryptox_test

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/storefront/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateEd25519Key(t *testing.T) {
	pemBytes, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	require.NotEmpty(t, pemBytes)

	block, _ := pem.Decode(pemBytes)
	require.NotNil(t, block)
	require.Equal(t, "PRIVATE KEY", block.Type)

	keyInterface, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)

	key, ok := keyInterface.(ed25519.PrivateKey)
	require.True(t, ok)
	require.Equal(t, ed25519.PrivateKeySize, len(key))
}

func TestParseEd25519PrivateKey(t *testing.T) {
	pemBytes, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	key, err := cryptox.ParseEd25519PrivateKey(pemBytes)
	require.NoError(t, err)
	require.Len(t, key, ed25519.PrivateKeySize)

	_, err = cryptox.ParseEd25519PrivateKey([]byte("not pem"))
	require.Error(t, err)
}

func TestLoadOrGenerateEd25519Key(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "signing.pem")

	first, err := cryptox.LoadOrGenerateEd25519Key(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := cryptox.LoadOrGenerateEd25519Key(path)
	require.NoError(t, err)
	require.True(t, first.Equal(second), "key should be reloaded, not regenerated")
}
