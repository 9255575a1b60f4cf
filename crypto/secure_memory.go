package crypto

import (
	"crypto/subtle"
	"errors"
	"runtime"
)

// SecureWipe attempts to securely erase the contents of a byte slice
// containing sensitive data. It returns an error if the byte slice is nil.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("cannot wipe nil data")
	}

	// Overwrite the data with zeros. The constant-time compare and KeepAlive
	// keep the compiler from eliding the store.
	zeros := make([]byte, len(data))
	subtle.ConstantTimeCompare(data, zeros)
	copy(data, zeros)

	runtime.KeepAlive(data)
	runtime.KeepAlive(zeros)

	return nil
}

// ZeroBytes erases the contents of a byte slice containing sensitive data.
// This is a convenience function that ignores the error from SecureWipe.
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}

// SecretBuffer owns a sensitive byte slice and zeroes it on Wipe.
// Use it with defer at the point of allocation:
//
//	key := crypto.NewSecretBuffer(32)
//	defer key.Wipe()
//
// The slice returned by Bytes must not outlive the buffer.
type SecretBuffer struct {
	b []byte
}

// NewSecretBuffer allocates a zeroed secret buffer of n bytes.
func NewSecretBuffer(n int) *SecretBuffer {
	return &SecretBuffer{b: make([]byte, n)}
}

// SecretBufferFrom takes ownership of b. The caller must not keep other references.
func SecretBufferFrom(b []byte) *SecretBuffer {
	return &SecretBuffer{b: b}
}

// Bytes returns the underlying slice, or nil after Wipe.
func (s *SecretBuffer) Bytes() []byte {
	if s == nil {
		return nil
	}
	return s.b
}

// Len returns the number of bytes held.
func (s *SecretBuffer) Len() int {
	if s == nil {
		return 0
	}
	return len(s.b)
}

// Wipe zeroes and releases the buffer. Safe to call more than once.
func (s *SecretBuffer) Wipe() {
	if s == nil || s.b == nil {
		return
	}
	ZeroBytes(s.b)
	s.b = nil
}
