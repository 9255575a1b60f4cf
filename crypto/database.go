package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// DatabaseHeaderSize is the size of the reserved all-zero header.
	DatabaseHeaderSize = 4
	// DatabaseSaltSize is the argon2id salt size.
	DatabaseSaltSize = 16
	// DatabaseNonceSize is the secretbox nonce size.
	DatabaseNonceSize = 24
	// DatabaseMinSize is the smallest blob that can hold an (empty) ciphertext.
	DatabaseMinSize = DatabaseHeaderSize + DatabaseSaltSize + DatabaseNonceSize + secretbox.Overhead
)

// argon2id parameters (interactive profile).
var (
	kdfTime    uint32 = 2
	kdfMemory  uint32 = 64 * 1024
	kdfThreads uint8  = 1
)

// EncryptDatabase encrypts a database file with a password.
//
// Format: 00000000 || salt(16) || nonce(24) || secretbox(plaintext).
// A fresh salt and nonce are drawn for every call.
func EncryptDatabase(plaintext, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}

	out := make([]byte, DatabaseHeaderSize+DatabaseSaltSize+DatabaseNonceSize, DatabaseMinSize+len(plaintext))
	salt := out[DatabaseHeaderSize : DatabaseHeaderSize+DatabaseSaltSize]
	nonce := out[DatabaseHeaderSize+DatabaseSaltSize:]
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: salt: %w", ErrEncryption, err)
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce: %w", ErrEncryption, err)
	}

	key := deriveDatabaseKey(password, salt)
	defer key.Wipe()

	out = secretbox.Seal(out, plaintext, (*[DatabaseNonceSize]byte)(nonce), (*[curveKeySize]byte)(key.Bytes()))

	NewLogger("EncryptDatabase").
		WithFields(OperationFields("seal", "success")).
		WithField("blob_size", len(out)).
		Debug("Database encrypted")
	return out, nil
}

// DecryptDatabase reverses EncryptDatabase. The header and length are checked
// before the password hash runs; a MAC mismatch yields ErrDecryption and never
// partial plaintext.
func DecryptDatabase(blob, password []byte) ([]byte, error) {
	if len(blob) < DatabaseMinSize {
		return nil, fmt.Errorf("%w: %d bytes, minimum %d", ErrTruncated, len(blob), DatabaseMinSize)
	}
	for _, b := range blob[:DatabaseHeaderSize] {
		if b != 0 {
			return nil, fmt.Errorf("%w: % x", ErrInvalidHeader, blob[:DatabaseHeaderSize])
		}
	}
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}

	salt := blob[DatabaseHeaderSize : DatabaseHeaderSize+DatabaseSaltSize]
	nonce := blob[DatabaseHeaderSize+DatabaseSaltSize : DatabaseHeaderSize+DatabaseSaltSize+DatabaseNonceSize]
	ciphertext := blob[DatabaseHeaderSize+DatabaseSaltSize+DatabaseNonceSize:]

	key := deriveDatabaseKey(password, salt)
	defer key.Wipe()

	plaintext, ok := secretbox.Open(nil, ciphertext, (*[DatabaseNonceSize]byte)(nonce), (*[curveKeySize]byte)(key.Bytes()))
	if !ok {
		NewLogger("DecryptDatabase").WithFields(OperationFields("open", "failed")).Warn("Database authentication failed")
		return nil, fmt.Errorf("%w: wrong password or corrupted database", ErrDecryption)
	}
	return plaintext, nil
}

func deriveDatabaseKey(password, salt []byte) *SecretBuffer {
	return SecretBufferFrom(argon2.IDKey(password, salt, kdfTime, kdfMemory, kdfThreads, curveKeySize))
}
