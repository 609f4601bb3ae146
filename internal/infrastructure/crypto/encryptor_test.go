package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	e, err := NewEncryptor(testKey)
	require.NoError(t, err)

	ciphertext, err := e.Encrypt("+15551234567")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "5551234567")

	plaintext, err := e.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", plaintext)
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	e, err := NewEncryptor(testKey)
	require.NoError(t, err)

	a, err := e.Encrypt("same input")
	require.NoError(t, err)
	b, err := e.Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "fresh nonce per message")
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	e1, err := NewEncryptor(testKey)
	require.NoError(t, err)
	e2, err := NewEncryptor(strings.Repeat("ff", 32))
	require.NoError(t, err)

	ciphertext, err := e1.Encrypt("secret")
	require.NoError(t, err)

	_, err = e2.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestNewEncryptorRejectsBadKeys(t *testing.T) {
	_, err := NewEncryptor("not-hex")
	assert.Error(t, err)

	_, err = NewEncryptor("abcd") // too short
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	e, err := NewEncryptor(testKey)
	require.NoError(t, err)

	_, err = e.Decrypt("!!!not base64!!!")
	assert.Error(t, err)

	_, err = e.Decrypt("YWJj") // valid base64, too short for a nonce
	assert.Error(t, err)
}
