package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestTokenCipher_RoundTrip(t *testing.T) {
	c, err := NewTokenCipher(testKey(t))
	require.NoError(t, err)

	ciphertext, err := c.Encrypt("1/1204986:a2b4c6d8")
	require.NoError(t, err)
	assert.NotEqual(t, "1/1204986:a2b4c6d8", ciphertext)

	plaintext, err := c.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "1/1204986:a2b4c6d8", plaintext)
}

func TestTokenCipher_EncryptIsNonDeterministic(t *testing.T) {
	c, err := NewTokenCipher(testKey(t))
	require.NoError(t, err)

	first, err := c.Encrypt("same-token")
	require.NoError(t, err)
	second, err := c.Encrypt("same-token")
	require.NoError(t, err)

	// Fresh nonce per encryption; callers never compare ciphertexts.
	assert.NotEqual(t, first, second)
}

func TestNewTokenCipher_RejectsBadKeys(t *testing.T) {
	_, err := NewTokenCipher("not base64!!")
	assert.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = NewTokenCipher(short)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestTokenCipher_DecryptRejectsGarbage(t *testing.T) {
	c, err := NewTokenCipher(testKey(t))
	require.NoError(t, err)

	_, err = c.Decrypt("%%%")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = c.Decrypt(base64.StdEncoding.EncodeToString([]byte("xx")))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	// Valid base64 but tampered payload must fail authentication.
	valid, err := c.Encrypt("token")
	require.NoError(t, err)
	raw, _ := base64.StdEncoding.DecodeString(valid)
	raw[len(raw)-1] ^= 0xff
	_, err = c.Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)
}
