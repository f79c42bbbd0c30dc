package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameLength indicates a payload is not exactly FrameSize bytes.
	ErrFrameLength = errors.New("invalid frame length")
)

// TagError reports a frame carrying an unexpected tag.
type TagError struct {
	Expected byte
	Actual   byte
}

// Error implements error.
func (e *TagError) Error() string {
	return fmt.Sprintf("unexpected tag %#02x, want %#02x", e.Actual, e.Expected)
}
