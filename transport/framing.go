package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/meshcall/limits"
)

// WriteMessage writes payload as one frame: a 4-byte big-endian length followed
// by the payload. Header and payload go out in a single Write so that frames from
// one writer never interleave.
func WriteMessage(w io.Writer, payload []byte) error {
	if err := limits.ValidateFrame(payload); err != nil {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	frame := make([]byte, limits.FrameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[limits.FrameHeaderSize:], payload)

	_, err := w.Write(frame)
	return err
}

// MessageReader splits a byte stream into frames. It keeps a fixed buffer of
// header plus limits.MaxFrameSize bytes; bytes that belong to the next frame stay
// buffered between calls, so several frames may arrive in one read and one frame
// may span many reads.
//
// A MessageReader is not safe for concurrent use.
type MessageReader struct {
	r   io.Reader
	buf []byte
	n   int
}

// NewMessageReader creates a frame reader over r.
func NewMessageReader(r io.Reader) *MessageReader {
	return &MessageReader{
		r:   r,
		buf: make([]byte, limits.FrameHeaderSize+limits.MaxFrameSize),
	}
}

// ReadMessage returns the next frame payload.
//
// It returns (nil, nil) when the stream ends cleanly between frames,
// io.ErrUnexpectedEOF when it ends inside a frame, and ErrFrameTooLarge when a
// header announces more than the buffer can hold.
func (m *MessageReader) ReadMessage() ([]byte, error) {
	for {
		msg, ok, err := m.extract()
		if err != nil || ok {
			return msg, err
		}

		k, err := m.r.Read(m.buf[m.n:])
		m.n += k
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			if k > 0 {
				continue
			}
			if m.n == 0 {
				return nil, nil
			}
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
}

// Buffered returns the number of bytes read from the stream but not yet returned.
func (m *MessageReader) Buffered() int {
	return m.n
}

// extract pops one complete frame from the buffer if available.
func (m *MessageReader) extract() ([]byte, bool, error) {
	if m.n < limits.FrameHeaderSize {
		return nil, false, nil
	}

	length := binary.BigEndian.Uint32(m.buf[:limits.FrameHeaderSize])
	if length > uint32(len(m.buf)-limits.FrameHeaderSize) {
		return nil, false, fmt.Errorf("%w: header announces %d bytes, limit %d",
			ErrFrameTooLarge, length, len(m.buf)-limits.FrameHeaderSize)
	}

	total := limits.FrameHeaderSize + int(length)
	if m.n < total {
		return nil, false, nil
	}

	msg := make([]byte, length)
	copy(msg, m.buf[limits.FrameHeaderSize:total])
	m.n = copy(m.buf, m.buf[total:m.n])
	return msg, true, nil
}
