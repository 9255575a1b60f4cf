package meshcall

import "errors"

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("meshcall already started")
	// ErrInvalidConfig is returned for unusable options.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidSaveData is returned for blobs that cannot be decoded.
	ErrInvalidSaveData = errors.New("invalid save data")
	// ErrKilled is returned by operations that need the secret key after Kill.
	ErrKilled = errors.New("meshcall killed")
	// ErrIdentityChanged is returned when loading save data of another identity.
	ErrIdentityChanged = errors.New("save data belongs to another identity")
)
