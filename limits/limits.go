// Package limits provides centralized size limits for the meshcall wire protocol.
// This ensures consistent validation across the framing, crypto and signaling layers.
package limits

import (
	"errors"
	"fmt"
)

const (
	// FrameHeaderSize is the size of the big-endian length prefix of every frame.
	FrameHeaderSize = 4

	// MaxFrameSize is the largest payload a single frame may carry.
	// Readers size their buffer from this value, so a larger length header is
	// rejected as a protocol violation instead of growing memory.
	MaxFrameSize = 16000

	// SealOverhead is the overhead of an anonymous sealed box
	// (ephemeral public key + Poly1305 tag, golang.org/x/crypto/nacl/box.AnonymousOverhead).
	SealOverhead = 32 + 16

	// SignatureOverhead is the sender public key plus the Ed25519 signature
	// that precede the plaintext inside the sealed box.
	SignatureOverhead = 32 + 64

	// EnvelopeOverhead is the total size added to a plaintext by envelope encryption.
	EnvelopeOverhead = SealOverhead + SignatureOverhead

	// MaxPlaintextMessage is the largest signaling plaintext that still fits in one frame.
	MaxPlaintextMessage = MaxFrameSize - EnvelopeOverhead

	// MaxNameLength bounds contact and user names.
	MaxNameLength = 128

	// MaxAddressLength bounds a single stored contact address string.
	MaxAddressLength = 255

	// MaxDatabaseSize is the largest database blob accepted for decryption (16MB).
	MaxDatabaseSize = 16 * 1024 * 1024
)

var (
	// ErrMessageEmpty indicates an empty message was provided
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates message exceeds maximum size
	ErrMessageTooLarge = errors.New("message too large")
)

// ValidateMessageSize validates a message against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateMessageSize(message []byte, maxSize int) error {
	if len(message) == 0 {
		return ErrMessageEmpty
	}
	if len(message) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrMessageTooLarge, len(message), maxSize)
	}
	return nil
}

// ValidateFrame validates a frame payload size. Empty frames are legal on the wire.
func ValidateFrame(payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: frame size %d exceeds limit %d", ErrMessageTooLarge, len(payload), MaxFrameSize)
	}
	return nil
}

// ValidatePlaintextMessage validates a signaling plaintext against MaxPlaintextMessage.
func ValidatePlaintextMessage(message []byte) error {
	if len(message) == 0 {
		return ErrMessageEmpty
	}
	if len(message) > MaxPlaintextMessage {
		return fmt.Errorf("%w: plaintext size %d exceeds limit %d", ErrMessageTooLarge, len(message), MaxPlaintextMessage)
	}
	return nil
}

// ValidateName validates a contact or user name length. Empty names are allowed.
func ValidateName(name string) error {
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name length %d exceeds limit %d", ErrMessageTooLarge, len(name), MaxNameLength)
	}
	return nil
}
