package wire

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// FrameSize is the size of every frame in bytes.
const FrameSize = 40

// Packet tags.
const (
	CommandTag   byte = 0xC5
	TelemetryTag byte = 0xA1
)

// CounterMask selects the counter bits of a header.
const CounterMask uint32 = 0x00ffffff

// Frame is one fixed-size transfer unit.
type Frame [FrameSize]byte

// Header is the first word of every frame: [tag(8) | counter(24)].
type Header uint32

// MakeHeader builds a header, the counter wraps at 24 bits.
func MakeHeader(tag byte, counter uint32) Header {
	return Header(uint32(tag)<<24 | counter&CounterMask)
}

// Tag returns the tag byte.
func (h Header) Tag() byte {
	return byte(h >> 24)
}

// Counter returns the 24-bit counter.
func (h Header) Counter() uint32 {
	return uint32(h) & CounterMask
}

// String implements Stringer.
func (h Header) String() string {
	return fmt.Sprintf("%02x:%06x", h.Tag(), h.Counter())
}

// FrameFrom copies a datagram into a Frame.
func FrameFrom(b []byte) (f Frame, err error) {
	if len(b) != FrameSize {
		return f, ErrFrameLength
	}
	copy(f[:], b)
	return f, nil
}

// Header reads the header word.
func (f *Frame) Header() Header {
	return Header(binary.BigEndian.Uint32(f[0:4]))
}

// PeekTag returns the tag without decoding the payload.
func PeekTag(f *Frame) byte {
	return f[0]
}

// Reset zeroes the whole frame.
func (f *Frame) Reset() {
	*f = Frame{}
}

// Hex returns the frame as a hex string.
func (f *Frame) Hex() string {
	return hex.EncodeToString(f[:])
}

// FrameFromHex parses a hex string produced by Hex.
func FrameFromHex(s string) (Frame, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Frame{}, err
	}
	return FrameFrom(b)
}

// Describe formats a frame for logs and tools.
func Describe(f *Frame) string {
	switch PeekTag(f) {
	case CommandTag:
		p, _ := DecodeCommand(f)
		return p.String()
	case TelemetryTag:
		p, _ := DecodeTelemetry(f)
		return p.String()
	}
	return fmt.Sprintf("unknown[%s]", f.Header())
}

func (f *Frame) putHeader(h Header) {
	binary.BigEndian.PutUint32(f[0:4], uint32(h))
}

// zeroFrom clears every byte at or after off.
func (f *Frame) zeroFrom(off int) {
	for i := off; i < FrameSize; i++ {
		f[i] = 0
	}
}

// CheckTag returns a *TagError if the frame doesn't carry tag.
func CheckTag(f *Frame, tag byte) error {
	if actual := PeekTag(f); actual != tag {
		return &TagError{Expected: tag, Actual: actual}
	}
	return nil
}
