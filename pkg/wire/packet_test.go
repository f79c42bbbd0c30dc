package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireFloatBits(t *testing.T, expected, actual float32) {
	require.Equal(t, math.Float32bits(expected), math.Float32bits(actual))
}

func TestHeader(t *testing.T) {
	h := MakeHeader(CommandTag, 0x12345678)
	require.Equal(t, CommandTag, h.Tag())
	require.Equal(t, uint32(0x345678), h.Counter())

	h = MakeHeader(TelemetryTag, CounterMask)
	require.Equal(t, TelemetryTag, h.Tag())
	require.Equal(t, CounterMask, h.Counter())
}

func TestCommandRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		pkt  CommandPacket
	}{
		{
			name: "zero counter",
			pkt:  CommandPacket{Header: MakeHeader(CommandTag, 0)},
		},
		{
			name: "max counter",
			pkt: CommandPacket{
				Header: MakeHeader(CommandTag, CounterMask),
				VX:     0.5, VY: -0.5, Phi: 2,
				Buttons: 0xdeadbeef, Timestamp: math.MaxUint32,
			},
		},
		{
			name: "odd floats",
			pkt: CommandPacket{
				Header: MakeHeader(CommandTag, 1),
				VX:     float32(math.Inf(-1)),
				VY:     math.SmallestNonzeroFloat32,
				Phi:    float32(math.Copysign(0, -1)),
			},
		},
		{
			name: "nan payload",
			pkt: CommandPacket{
				Header: MakeHeader(CommandTag, 0x800000),
				VX:     math.Float32frombits(0x7fc00001),
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := tc.pkt.Frame()
			out, ok := DecodeCommand(&f)
			require.True(t, ok)
			require.Equal(t, tc.pkt.Header, out.Header)
			requireFloatBits(t, tc.pkt.VX, out.VX)
			requireFloatBits(t, tc.pkt.VY, out.VY)
			requireFloatBits(t, tc.pkt.Phi, out.Phi)
			require.Equal(t, tc.pkt.Buttons, out.Buttons)
			require.Equal(t, tc.pkt.Timestamp, out.Timestamp)
		})
	}
}

func TestTelemetryRoundTrip(t *testing.T) {
	for _, counter := range []uint32{0, 1, 0x7fffff, CounterMask} {
		pkt := TelemetryPacket{
			Header:    MakeHeader(TelemetryTag, counter),
			Speeds:    [4]float32{1.5, -2.25, float32(math.NaN()), math.MaxFloat32},
			Samples:   [4]uint16{0, 4095, 0xffff, 1234},
			Flags:     0x0102,
			Timestamp: counter * 3,
		}
		f := pkt.Frame()
		out, ok := DecodeTelemetry(&f)
		require.True(t, ok)
		require.Equal(t, pkt.Header, out.Header)
		for i := range pkt.Speeds {
			requireFloatBits(t, pkt.Speeds[i], out.Speeds[i])
		}
		require.Equal(t, pkt.Samples, out.Samples)
		require.Equal(t, pkt.Flags, out.Flags)
		require.Equal(t, pkt.Timestamp, out.Timestamp)
	}
}

func TestEncodeZeroPads(t *testing.T) {
	var f Frame
	for i := range f {
		f[i] = 0xaa
	}
	cmd := CommandPacket{Header: MakeHeader(CommandTag, 7), VX: 1}
	cmd.EncodeTo(&f)
	for i := CommandSize; i < FrameSize; i++ {
		require.Zero(t, f[i], "byte %d", i)
	}

	for i := range f {
		f[i] = 0x55
	}
	tel := TelemetryPacket{Header: MakeHeader(TelemetryTag, 7)}
	tel.EncodeTo(&f)
	for i := TelemetrySize; i < FrameSize; i++ {
		require.Zero(t, f[i], "byte %d", i)
	}
}

func TestDecodeRejectsForeignTag(t *testing.T) {
	tel := TelemetryPacket{Header: MakeHeader(TelemetryTag, 1)}
	f := tel.Frame()
	_, ok := DecodeCommand(&f)
	require.False(t, ok)

	cmd := CommandPacket{Header: MakeHeader(CommandTag, 1)}
	f = cmd.Frame()
	_, ok = DecodeTelemetry(&f)
	require.False(t, ok)

	for tag := 0; tag < 256; tag++ {
		if byte(tag) == CommandTag {
			continue
		}
		var g Frame
		for i := range g {
			g[i] = byte(i * 7)
		}
		g[0] = byte(tag)
		_, ok := DecodeCommand(&g)
		require.False(t, ok, "tag %#02x", tag)
	}
}

func TestDecodeCommandScenario(t *testing.T) {
	// header word is big-endian: the last byte is the low counter byte.
	var f Frame
	copy(f[:], []byte{0xC5, 0x00, 0x00, 0x01})
	pkt, ok := DecodeCommand(&f)
	require.True(t, ok)
	require.Equal(t, uint32(1), pkt.Header.Counter())
	require.Zero(t, pkt.VX)
	require.Zero(t, pkt.VY)
	require.Zero(t, pkt.Phi)
	require.Zero(t, pkt.Buttons)

	copy(f[:], []byte{0xC5, 0x00, 0x01, 0x00})
	pkt, ok = DecodeCommand(&f)
	require.True(t, ok)
	require.Equal(t, uint32(0x100), pkt.Header.Counter())
}

func TestFrameFrom(t *testing.T) {
	_, err := FrameFrom(make([]byte, FrameSize-1))
	require.Equal(t, ErrFrameLength, err)
	_, err = FrameFrom(make([]byte, FrameSize+1))
	require.Equal(t, ErrFrameLength, err)

	cmd := CommandPacket{Header: MakeHeader(CommandTag, 3), Phi: 1}
	src := cmd.Frame()
	f, err := FrameFrom(src[:])
	require.NoError(t, err)
	require.Equal(t, src, f)

	parsed, err := FrameFromHex(src.Hex())
	require.NoError(t, err)
	require.Equal(t, src, parsed)
}

func TestCheckTag(t *testing.T) {
	cmd := CommandPacket{Header: MakeHeader(CommandTag, 3)}
	f := cmd.Frame()
	require.NoError(t, CheckTag(&f, CommandTag))
	err := CheckTag(&f, TelemetryTag)
	require.Error(t, err)
	tagErr, ok := err.(*TagError)
	require.True(t, ok)
	require.Equal(t, CommandTag, tagErr.Actual)
	require.Contains(t, Describe(&f), "CMD[")
}
