// Package limits provides centralized size constants and validation functions
// for the meshcall wire protocol.
//
// # Size Hierarchy
//
//   - MaxFrameSize (16000 bytes): the largest payload of one length-prefixed frame.
//     Frame readers allocate exactly FrameHeaderSize+MaxFrameSize bytes and reject
//     any header announcing more.
//
//   - EnvelopeOverhead (144 bytes): sealed box overhead (48) plus the embedded sender
//     public key (32) and Ed25519 signature (64).
//
//   - MaxPlaintextMessage: MaxFrameSize minus EnvelopeOverhead, the largest JSON
//     signaling message that can be sent in a single frame.
//
// # Validation Functions
//
//	if err := limits.ValidatePlaintextMessage(message); err != nil {
//	    // ErrMessageEmpty or ErrMessageTooLarge
//	}
//
// The SealOverhead constant matches golang.org/x/crypto/nacl/box.AnonymousOverhead.
package limits
