package joystick

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAxisCode(t *testing.T) {
	cases := []struct {
		value  int
		invert bool
		code   uint32
	}{
		{0, false, CodeCenter},
		{32767, false, CodeMax},
		{-32767, false, 0},
		{-32768, false, 0},
		{32767, true, 0},
		{-32767, true, CodeMax},
		{16384, false, 3071},
	}
	for _, c := range cases {
		require.Equal(t, c.code, AxisCode(c.value, c.invert), "value %d invert %v", c.value, c.invert)
	}
}

func TestScript(t *testing.T) {
	s := NewScript()
	smp, err := s.Sample(context.Background())
	require.NoError(t, err)
	require.Equal(t, Centered, smp)

	s.Push(Sample{X: 1}, Sample{X: 2})
	for _, x := range []uint32{1, 2, 2} {
		smp, err = s.Sample(context.Background())
		require.NoError(t, err)
		require.Equal(t, x, smp.X)
	}
}

func TestConverter(t *testing.T) {
	c := NewConverter()
	smp, err := c.Sample(context.Background())
	require.NoError(t, err)
	require.Equal(t, Centered, smp)

	c.Set(ChannelX, 4095)
	c.Set(ChannelY, 10)
	c.Set(ChannelRot, 5000)
	c.SetButtons(0x3)
	// inputs are latched only by a conversion.
	require.Equal(t, uint32(CodeCenter), c.Results()[ChannelX])
	smp, err = c.Sample(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sample{X: 4095, Y: 10, Rot: CodeMax, Buttons: 3}, smp)
}

func TestConverterCancel(t *testing.T) {
	c := NewConverter()
	c.ConversionTime = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Sample(ctx)
	require.Equal(t, context.Canceled, err)
}

type testEvent struct {
	index   int
	value   int
	pressed bool
}

func (e testEvent) IsInit() bool { return false }
func (e testEvent) Index() int   { return e.index }
func (e testEvent) Value() int   { return e.value }

type testButton struct{ testEvent }

func (e testButton) Pressed() bool { return e.pressed }

func TestDeviceSamplerApply(t *testing.T) {
	s := NewDeviceSampler(0)
	s.apply(testEvent{index: 0, value: 32767})
	s.apply(testEvent{index: 1, value: -32767})
	s.apply(testEvent{index: 3, value: 0})
	s.apply(testEvent{index: 7, value: 100})
	s.apply(testButton{testEvent{index: 2, pressed: true}})
	smp, err := s.Sample(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sample{X: CodeMax, Y: CodeMax, Rot: CodeCenter, Buttons: 4}, smp)

	s.apply(testButton{testEvent{index: 2, pressed: false}})
	smp, _ = s.Sample(context.Background())
	require.Zero(t, smp.Buttons)
}

func TestConfigNewSampler(t *testing.T) {
	conf := NewConfig()
	for source, expected := range map[string]interface{}{
		SourceDevice:    &DeviceSampler{},
		SourceConverter: &Converter{},
		SourceCentered:  &Script{},
	} {
		conf.Source = source
		s, err := conf.NewSampler()
		require.NoError(t, err)
		require.IsType(t, expected, s)
	}
	conf.Source = "telepathy"
	_, err := conf.NewSampler()
	require.Error(t, err)
}
