package crypto

import "errors"

// Sentinel errors for crypto package operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrInvalidKey indicates a key of the wrong length or an invalid curve point.
	ErrInvalidKey = errors.New("invalid key")

	// ErrEncryption indicates an envelope or database blob could not be produced.
	// Callers must treat it as "do not send".
	ErrEncryption = errors.New("encryption failed")

	// ErrDecryption indicates a sealed box could not be opened or its signature
	// did not verify. No plaintext is ever returned alongside it.
	ErrDecryption = errors.New("decryption failed")

	// ErrInvalidHeader indicates a database blob with a non-zero reserved header.
	ErrInvalidHeader = errors.New("invalid database header")

	// ErrTruncated indicates a database blob shorter than header, salt, nonce and MAC.
	ErrTruncated = errors.New("database blob truncated")

	// ErrEmptyPassword indicates a database operation without a password.
	ErrEmptyPassword = errors.New("empty password")
)
