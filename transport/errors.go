package transport

import (
	"errors"
	"fmt"
)

// Common errors for the meshcall transport layer
var (
	// ErrFrameTooLarge indicates a frame header or payload above limits.MaxFrameSize
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrNoEndpoint indicates every candidate endpoint refused or timed out
	ErrNoEndpoint = errors.New("no reachable endpoint")

	// ErrInvalidAddress indicates a stored contact address that cannot be parsed
	ErrInvalidAddress = errors.New("invalid address")
)

// OpError represents a transport error with the operation and address involved.
type OpError struct {
	Op   string // operation that caused the error
	Addr string // address if relevant
	Err  error  // underlying error
}

func (e *OpError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("transport %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func newOpError(op, addr string, err error) *OpError {
	return &OpError{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}
