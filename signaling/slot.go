package signaling

import "sync"

// CallSlot holds the single in-flight call of the process.
type CallSlot struct {
	mu      sync.Mutex
	current *Call
}

// NewCallSlot creates an empty slot.
func NewCallSlot() *CallSlot {
	return &CallSlot{}
}

// TryAcquire claims the slot for c, failing fast when another call holds it.
// The slot is released automatically when c reaches a terminal state.
func (s *CallSlot) TryAcquire(c *Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current != c {
		return ErrCallInProgress
	}
	s.current = c
	c.finishHook(s.release)
	return nil
}

// Current returns the call holding the slot, or nil.
func (s *CallSlot) Current() *Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *CallSlot) release(c *Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == c {
		s.current = nil
	}
}
