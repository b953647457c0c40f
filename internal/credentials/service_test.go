package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	copy(key, "0123456789abcdef0123456789abcdef")
	svc, err := NewServiceWithKey(key)
	require.NoError(t, err)

	ciphertext, nonce, err := svc.Encrypt([]byte("ghp_secret_token"))
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), "ghp_secret_token")

	plaintext, err := svc.Decrypt(ciphertext, nonce)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret_token", string(plaintext))
}

func TestDecryptRejectsTampering(t *testing.T) {
	svc, err := NewServiceWithKey(make([]byte, 32))
	require.NoError(t, err)

	ciphertext, nonce, err := svc.Encrypt([]byte("token"))
	require.NoError(t, err)

	ciphertext[0] ^= 0xff
	_, err = svc.Decrypt(ciphertext, nonce)
	assert.Error(t, err)
}

func TestRejectsShortKey(t *testing.T) {
	_, err := NewServiceWithKey([]byte("too-short"))
	assert.Error(t, err)
}

func TestKeyFileGeneratedOnce(t *testing.T) {
	t.Setenv(EncryptionKeyEnv, "")
	t.Setenv(EncryptionKeyFileEnv, "")
	path := filepath.Join(t.TempDir(), "komodo.key")

	svc, err := NewServiceFromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "file:"+path, svc.KeySource())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// the same key is reused, so ciphertexts stay decryptable
	ciphertext, nonce, err := svc.Encrypt([]byte("token"))
	require.NoError(t, err)

	reloaded, err := NewServiceFromEnv(path)
	require.NoError(t, err)
	plaintext, err := reloaded.Decrypt(ciphertext, nonce)
	require.NoError(t, err)
	assert.Equal(t, "token", string(plaintext))
}

func TestEnvKeyWins(t *testing.T) {
	t.Setenv(EncryptionKeyEnv, "0123456789abcdef0123456789abcdef")
	svc, err := NewServiceFromEnv(filepath.Join(t.TempDir(), "unused.key"))
	require.NoError(t, err)
	assert.Equal(t, "env:"+EncryptionKeyEnv, svc.KeySource())
}
