package signaling

import "errors"

var (
	// ErrCallInProgress is returned when the call slot is already taken.
	ErrCallInProgress = errors.New("call already in progress")
	// ErrIdentityMismatch is returned when a frame is signed by a key other
	// than the one bound to the channel.
	ErrIdentityMismatch = errors.New("sender identity mismatch")
	// ErrDecrypt wraps envelope failures on received frames.
	ErrDecrypt = errors.New("cannot decrypt frame")
	// ErrProtocol is returned for malformed messages or unexpected actions.
	ErrProtocol = errors.New("signaling protocol error")
	// ErrInvalidState is returned for call operations not allowed in the current state.
	ErrInvalidState = errors.New("invalid call state")
	// ErrContactBlocked is returned when calling a blocked contact.
	ErrContactBlocked = errors.New("contact is blocked")
	// ErrEngineClosed is returned after Close.
	ErrEngineClosed = errors.New("signaling engine closed")
)
