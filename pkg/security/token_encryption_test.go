package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenEncryption_RoundTrip(t *testing.T) {
	key := []byte("01234567890123456789012345678901")
	enc, err := NewTokenEncryption(key)
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("refresh-token-value")
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), "refresh-token-value")

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "refresh-token-value", plaintext)
}

func TestTokenEncryption_RejectsShortKey(t *testing.T) {
	_, err := NewTokenEncryption([]byte("too-short"))
	assert.Error(t, err)
}

func TestTokenEncryption_DecryptCorruptedDataFails(t *testing.T) {
	key := []byte("01234567890123456789012345678901")
	enc, err := NewTokenEncryption(key)
	require.NoError(t, err)

	_, err = enc.Decrypt([]byte("not-valid-base64-or-ciphertext!!"))
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
