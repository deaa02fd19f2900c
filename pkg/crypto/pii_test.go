package crypto

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	sealed, err := c.Encrypt("A123BC77")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "A123BC77")

	again, err := c.Encrypt("A123BC77")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per call")

	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "A123BC77", plain)
}

func TestCipherRejectsTampering(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	_, err = c.Decrypt("not base64!")
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = c.Decrypt("AAAA")
	assert.True(t, errors.Is(err, ErrMalformed))

	other, err := NewCipher(strings.Repeat("ff", 32))
	require.NoError(t, err)
	sealed, err := other.Encrypt("+15550100")
	require.NoError(t, err)

	_, err = c.Decrypt(sealed)
	assert.Error(t, err)
}

func TestNewCipherBadKey(t *testing.T) {
	_, err := NewCipher("zz")
	assert.Error(t, err)

	_, err = NewCipher("0011")
	assert.Error(t, err)
}
