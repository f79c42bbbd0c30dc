package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Payload sizes.
const (
	CommandSize   = 24
	TelemetrySize = 36
)

var native = binary.NativeEndian

// Packet is implemented by both packet types.
type Packet interface {
	Tag() byte
	EncodeTo(*Frame)
}

// CommandPacket carries velocity commands from the remote node.
type CommandPacket struct {
	Header    Header
	VX        float32
	VY        float32
	Phi       float32
	Buttons   uint32
	Timestamp uint32
}

// Tag implements Packet.
func (p *CommandPacket) Tag() byte { return CommandTag }

// Stamp sets the header using CommandTag.
func (p *CommandPacket) Stamp(counter, timestamp uint32) {
	p.Header = MakeHeader(CommandTag, counter)
	p.Timestamp = timestamp
}

// EncodeTo implements Packet.
func (p *CommandPacket) EncodeTo(f *Frame) {
	f.putHeader(p.Header)
	putFloat(f[4:], p.VX)
	putFloat(f[8:], p.VY)
	putFloat(f[12:], p.Phi)
	native.PutUint32(f[16:], p.Buttons)
	native.PutUint32(f[20:], p.Timestamp)
	f.zeroFrom(CommandSize)
}

// Frame encodes into a new frame.
func (p *CommandPacket) Frame() (f Frame) {
	p.EncodeTo(&f)
	return
}

// String implements Stringer.
func (p CommandPacket) String() string {
	return fmt.Sprintf("CMD[%s] vx=%.3f vy=%.3f phi=%.3f buttons=%#x ts=%d",
		p.Header, p.VX, p.VY, p.Phi, p.Buttons, p.Timestamp)
}

// DecodeCommand decodes a frame as CommandPacket.
// ok is false when the tag doesn't match, in that case
// the returned packet must be ignored.
func DecodeCommand(f *Frame) (p CommandPacket, ok bool) {
	if p.Header = f.Header(); p.Header.Tag() != CommandTag {
		return CommandPacket{}, false
	}
	p.VX = getFloat(f[4:])
	p.VY = getFloat(f[8:])
	p.Phi = getFloat(f[12:])
	p.Buttons = native.Uint32(f[16:])
	p.Timestamp = native.Uint32(f[20:])
	return p, true
}

// TelemetryPacket carries motor readings from the drive node.
type TelemetryPacket struct {
	Header    Header
	Speeds    [4]float32
	Samples   [4]uint16
	Flags     uint32
	Timestamp uint32
}

// Tag implements Packet.
func (p *TelemetryPacket) Tag() byte { return TelemetryTag }

// Stamp sets the header using TelemetryTag.
func (p *TelemetryPacket) Stamp(counter, timestamp uint32) {
	p.Header = MakeHeader(TelemetryTag, counter)
	p.Timestamp = timestamp
}

// EncodeTo implements Packet.
func (p *TelemetryPacket) EncodeTo(f *Frame) {
	f.putHeader(p.Header)
	off := 4
	for _, v := range p.Speeds {
		putFloat(f[off:], v)
		off += 4
	}
	for _, v := range p.Samples {
		native.PutUint16(f[off:], v)
		off += 2
	}
	native.PutUint32(f[28:], p.Flags)
	native.PutUint32(f[32:], p.Timestamp)
	f.zeroFrom(TelemetrySize)
}

// Frame encodes into a new frame.
func (p *TelemetryPacket) Frame() (f Frame) {
	p.EncodeTo(&f)
	return
}

// String implements Stringer.
func (p TelemetryPacket) String() string {
	return fmt.Sprintf("TEL[%s] speeds=%.2f/%.2f/%.2f/%.2f adc=%d/%d/%d/%d flags=%#x ts=%d",
		p.Header,
		p.Speeds[0], p.Speeds[1], p.Speeds[2], p.Speeds[3],
		p.Samples[0], p.Samples[1], p.Samples[2], p.Samples[3],
		p.Flags, p.Timestamp)
}

// DecodeTelemetry decodes a frame as TelemetryPacket.
func DecodeTelemetry(f *Frame) (p TelemetryPacket, ok bool) {
	if p.Header = f.Header(); p.Header.Tag() != TelemetryTag {
		return TelemetryPacket{}, false
	}
	off := 4
	for i := range p.Speeds {
		p.Speeds[i] = getFloat(f[off:])
		off += 4
	}
	for i := range p.Samples {
		p.Samples[i] = native.Uint16(f[off:])
		off += 2
	}
	p.Flags = native.Uint32(f[28:])
	p.Timestamp = native.Uint32(f[32:])
	return p, true
}

func putFloat(b []byte, v float32) {
	native.PutUint32(b, math.Float32bits(v))
}

func getFloat(b []byte) float32 {
	return math.Float32frombits(native.Uint32(b))
}
