package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseRoundTrip(t *testing.T) {
	plaintext := []byte(`{"contacts":[{"name":"alice"}]}`)

	blob, err := EncryptDatabase(plaintext, []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, blob[:DatabaseHeaderSize])
	assert.Len(t, blob, DatabaseMinSize+len(plaintext))

	out, err := DecryptDatabase(blob, []byte("correct horse"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plaintext, out))
}

func TestDatabaseFreshSaltPerCall(t *testing.T) {
	a, err := EncryptDatabase([]byte("same"), []byte("pw"))
	require.NoError(t, err)
	b, err := EncryptDatabase([]byte("same"), []byte("pw"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDatabaseWrongPassword(t *testing.T) {
	blob, err := EncryptDatabase([]byte("secret"), []byte("pw1"))
	require.NoError(t, err)

	out, err := DecryptDatabase(blob, []byte("pw2"))
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, ErrDecryption))
}

func TestDatabaseTamperRejection(t *testing.T) {
	blob, err := EncryptDatabase([]byte("secret contacts"), []byte("pw"))
	require.NoError(t, err)

	t.Run("Non-zero header", func(t *testing.T) {
		tampered := append([]byte(nil), blob...)
		tampered[2] = 1
		_, err := DecryptDatabase(tampered, []byte("pw"))
		assert.True(t, errors.Is(err, ErrInvalidHeader))
	})

	t.Run("Truncated below minimum", func(t *testing.T) {
		_, err := DecryptDatabase(blob[:DatabaseMinSize-1], []byte("pw"))
		assert.True(t, errors.Is(err, ErrTruncated))
	})

	t.Run("Header checked before password", func(t *testing.T) {
		// An empty password would be rejected too; the header error must win,
		// proving the cheap checks run before anything else.
		tampered := append([]byte(nil), blob...)
		tampered[0] = 0xff
		_, err := DecryptDatabase(tampered, nil)
		assert.True(t, errors.Is(err, ErrInvalidHeader))
	})

	t.Run("Ciphertext bit flip", func(t *testing.T) {
		tampered := append([]byte(nil), blob...)
		tampered[len(tampered)-1] ^= 0x01
		out, err := DecryptDatabase(tampered, []byte("pw"))
		assert.Nil(t, out)
		assert.True(t, errors.Is(err, ErrDecryption))
	})
}

func TestDatabaseEmptyPassword(t *testing.T) {
	_, err := EncryptDatabase([]byte("x"), nil)
	assert.True(t, errors.Is(err, ErrEmptyPassword))
}
