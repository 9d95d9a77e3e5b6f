package resp

import (
	"errors"
	"fmt"
)

// ErrIncomplete signals that the buffer does not yet contain a full frame.
// Callers should read more bytes from the connection and retry.
var ErrIncomplete = errors.New("resp: incomplete frame")

// MaxFrameSize bounds the size of any single frame, bulk string included.
const MaxFrameSize = 64 * 1024 * 1024

// InvalidFrameTypeError reports an unrecognized leading type byte.
type InvalidFrameTypeError struct {
	Byte byte
}

func (e *InvalidFrameTypeError) Error() string {
	return fmt.Sprintf("resp: invalid frame type byte: %#x", e.Byte)
}

// InvalidIntegerError reports a malformed integer field (length prefix or
// ':' integer reply).
type InvalidIntegerError struct {
	Text string
}

func (e *InvalidIntegerError) Error() string {
	return fmt.Sprintf("resp: invalid integer: %q", e.Text)
}

// InvalidBulkLengthError reports a bulk length outside the accepted range.
type InvalidBulkLengthError struct {
	N int64
}

func (e *InvalidBulkLengthError) Error() string {
	return fmt.Sprintf("resp: invalid bulk length: %d", e.N)
}

// FrameTooLargeError reports a frame exceeding MaxFrameSize.
type FrameTooLargeError struct {
	N int
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("resp: frame exceeds maximum size (%d bytes)", e.N)
}

// InvalidEncodingError reports a line that isn't terminated by CRLF, or
// otherwise violates the wire grammar.
type InvalidEncodingError struct {
	Reason string
}

func (e *InvalidEncodingError) Error() string {
	return fmt.Sprintf("resp: invalid encoding: %s", e.Reason)
}
