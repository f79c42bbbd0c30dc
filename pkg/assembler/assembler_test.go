package assembler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/omnilink/pkg/air"
	"github.com/robotalks/omnilink/pkg/drive"
	fx "github.com/robotalks/omnilink/pkg/framework"
	"github.com/robotalks/omnilink/pkg/joystick"
	"github.com/robotalks/omnilink/pkg/relay"
	"github.com/robotalks/omnilink/pkg/spi"
	"github.com/robotalks/omnilink/pkg/wire"
)

func TestMapper(t *testing.T) {
	cases := []struct {
		raw    uint32
		max    float32
		invert bool
		want   float32
	}{
		{2048, 0.5, false, 0},
		{2198, 0.5, false, 0},
		{1898, 0.5, false, 0},
		{4095, 0.5, false, 0.5},
		{0, 0.5, false, -0.5},
		{4095, 2, true, -2},
		{0, 2, true, 2},
		{5000, 1, false, 1},
	}
	for _, c := range cases {
		require.InDelta(t, c.want, DefaultMapper.Map(c.raw, c.max, c.invert), 1e-6, "raw %d", c.raw)
	}
	half := DefaultMapper.Map(2198+(4095-2198)/2, 1, false)
	require.InDelta(t, 0.5, half, 1e-3)
	require.True(t, DefaultMapper.Map(2199, 1, false) > 0)
	require.True(t, DefaultMapper.Map(1897, 1, false) < 0)
}

type telemetryLog struct {
	lock sync.Mutex
	pkts []wire.TelemetryPacket
}

func (l *telemetryLog) ObserveTelemetry(p wire.TelemetryPacket) {
	l.lock.Lock()
	l.pkts = append(l.pkts, p)
	l.lock.Unlock()
}

func (l *telemetryLog) packets() []wire.TelemetryPacket {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]wire.TelemetryPacket(nil), l.pkts...)
}

type commandLog struct {
	lock sync.Mutex
	pkts []wire.CommandPacket
}

func (l *commandLog) ObserveCommand(p wire.CommandPacket) {
	l.lock.Lock()
	l.pkts = append(l.pkts, p)
	l.lock.Unlock()
}

func (l *commandLog) packets() []wire.CommandPacket {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]wire.CommandPacket(nil), l.pkts...)
}

func newBusLink(fifo int) (*spi.Bus, *spi.Link) {
	bus := spi.NewBus(fifo)
	e := spi.NewEngine(bus)
	bus.Attach(e)
	return bus, spi.NewLink(e)
}

// exchange clocks one frame against a peripheral sending tx and
// returns what the peripheral received.
func exchange(t *testing.T, bus *spi.Bus, link *spi.Link, tx wire.Frame) wire.Frame {
	rx := make([]byte, wire.FrameSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := bus.Transact(context.Background(), tx[:], rx)
		require.NoError(t, err)
	}()
	waitFor(t, bus.Pending)
	for steps := 0; !link.Ready(); steps++ {
		require.True(t, steps < 10000)
		bus.Step()
	}
	<-done
	f, err := wire.FrameFrom(rx)
	require.NoError(t, err)
	return f
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timeout")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCommandAssembler(t *testing.T) {
	bus, link := newBusLink(8)
	obs := &telemetryLog{}
	a := NewCommandAssembler(joystick.NewScript(
		joystick.Sample{X: joystick.CodeMax, Y: joystick.CodeCenter, Rot: 0, Buttons: 3},
		joystick.Centered,
	), link)
	a.Observer = obs
	loop := fx.NewLoop()
	a.AddToLoop(loop)
	ctx := context.Background()

	loop.Cycle(ctx)
	require.False(t, link.Ready())
	// the previous transfer is still in flight.
	loop.Cycle(ctx)
	st := a.Stats()
	require.Equal(t, uint64(1), st.Sent)
	require.Equal(t, uint64(1), st.Busy)

	tele := wire.TelemetryPacket{Speeds: [4]float32{1, -1, 1, -1}, Samples: [4]uint16{10, 20, 30, 40}}
	tele.Stamp(7, 99)
	got := exchange(t, bus, link, tele.Frame())
	cmd, ok := wire.DecodeCommand(&got)
	require.True(t, ok)
	require.Equal(t, uint32(0), cmd.Header.Counter())
	require.Equal(t, uint32(0), cmd.Timestamp)
	require.InDelta(t, 0.5, cmd.VX, 1e-6)
	require.Zero(t, cmd.VY)
	require.InDelta(t, -2.0, cmd.Phi, 1e-6)
	require.Equal(t, uint32(3), cmd.Buttons)

	loop.Cycle(ctx)
	require.Equal(t, []wire.TelemetryPacket{tele}, obs.packets())
	got = exchange(t, bus, link, wire.Frame{})
	cmd, ok = wire.DecodeCommand(&got)
	require.True(t, ok)
	require.Equal(t, uint32(1), cmd.Header.Counter())
	require.Equal(t, uint32(1), cmd.Timestamp)
	require.Zero(t, cmd.VX)
	require.Zero(t, cmd.Phi)

	// zeros are not telemetry.
	loop.Cycle(ctx)
	st = a.Stats()
	require.Equal(t, uint64(3), st.Sent)
	require.Equal(t, uint64(1), st.Telemetry)
	require.Equal(t, uint64(1), st.Invalid)
	require.Equal(t, uint32(2), a.Pending().Header.Counter())
}

func TestCommandAssemblerSampleError(t *testing.T) {
	_, link := newBusLink(8)
	a := NewCommandAssembler(joystick.SampleFunc(func(ctx context.Context) (joystick.Sample, error) {
		return joystick.Sample{}, context.DeadlineExceeded
	}), link)
	loop := fx.NewLoop()
	a.AddToLoop(loop)
	loop.Cycle(context.Background())
	require.Equal(t, uint64(1), a.Stats().SampleErrors)
	require.Zero(t, a.Stats().Sent)
	require.True(t, link.Ready())
}

type fixedSpeeds [MotorCount]float32

func (s fixedSpeeds) MotorSpeeds() [MotorCount]float32 { return s }

type fixedChannel struct {
	code uint16
	err  error
}

func (c fixedChannel) Read(ctx context.Context) (uint16, error) { return c.code, c.err }

func TestTelemetryAssembler(t *testing.T) {
	bus, link := newBusLink(4)
	target := &drive.Target{}
	obs := &commandLog{}
	a := NewTelemetryAssembler(link, target)
	a.Speeds = fixedSpeeds{1, 2, 3, 4}
	a.Channels = [MotorCount]AnalogChannel{
		fixedChannel{code: 100},
		fixedChannel{code: 200},
		fixedChannel{err: context.Canceled},
	}
	a.Observer = obs
	loop := fx.NewLoop()
	a.AddToLoop(loop)
	ctx := context.Background()

	// nothing received yet, the zero frame is invalid.
	loop.Cycle(ctx)
	st := a.Stats()
	require.Equal(t, uint64(1), st.Invalid)
	require.Equal(t, uint64(1), st.Sent)
	require.Equal(t, uint64(1), st.ReadErrs)

	cmd := wire.CommandPacket{VX: 0.25, VY: -0.5, Phi: 1}
	cmd.Stamp(5, 5)
	got := exchange(t, bus, link, cmd.Frame())
	tele, ok := wire.DecodeTelemetry(&got)
	require.True(t, ok)
	require.Equal(t, uint32(0), tele.Header.Counter())
	require.Equal(t, uint32(1), tele.Timestamp)
	require.Equal(t, [4]float32{1, 2, 3, 4}, tele.Speeds)
	require.Equal(t, [4]uint16{100, 200, 0, 0}, tele.Samples)
	require.Zero(t, tele.Flags)

	loop.Cycle(ctx)
	require.Equal(t, drive.Velocity{VX: 0.25, VY: -0.5, Phi: 1}, target.Get())
	require.Equal(t, []wire.CommandPacket{cmd}, obs.packets())
	got = exchange(t, bus, link, wire.Frame{})
	tele, ok = wire.DecodeTelemetry(&got)
	require.True(t, ok)
	require.Equal(t, uint32(1), tele.Header.Counter())
	require.Equal(t, uint32(2), tele.Timestamp)
}

func TestTelemetryAssemblerSkipsWhileBusy(t *testing.T) {
	_, link := newBusLink(4)
	a := NewTelemetryAssembler(link, &drive.Target{})
	loop := fx.NewLoop()
	a.AddToLoop(loop)
	loop.Cycle(context.Background())
	loop.Cycle(context.Background())
	st := a.Stats()
	require.Equal(t, uint64(2), st.Cycles)
	require.Equal(t, uint64(1), st.Sent)
	require.Equal(t, uint64(1), st.Skipped)
}

func TestInvalidPolicy(t *testing.T) {
	valid := func(counter uint32, vx float32) wire.Frame {
		p := wire.CommandPacket{VX: vx}
		p.Stamp(counter, counter)
		return p.Frame()
	}
	bad := wire.Frame{0x5C}
	cases := []struct {
		name   string
		policy InvalidPolicy
		stale  bool
		frames []wire.Frame
		want   float32
	}{
		{"hold last", HoldLast, false, []wire.Frame{valid(1, 0.5), bad, bad, bad}, 0.5},
		{"zero after 2", ZeroAfter(2), false, []wire.Frame{valid(1, 0.5), bad, bad}, 0},
		{"zero after 3 not reached", ZeroAfter(3), false, []wire.Frame{valid(1, 0.5), bad, bad}, 0.5},
		{"valid resets run", ZeroAfter(2), false, []wire.Frame{valid(1, 0.5), bad, valid(2, 0.3), bad}, 0.3},
		{"stale accepted", HoldLast, false, []wire.Frame{valid(1, 0.5), valid(1, 0.2)}, 0.2},
		{"stale rejected", HoldLast, true, []wire.Frame{valid(1, 0.5), valid(1, 0.2)}, 0.5},
		{"stale counts invalid", ZeroAfter(1), true, []wire.Frame{valid(1, 0.5), valid(1, 0.2)}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			target := &drive.Target{}
			a := NewTelemetryAssembler(nil, target)
			a.Policy, a.RejectStale = c.policy, c.stale
			for i := range c.frames {
				a.interpret(&c.frames[i])
			}
			require.Equal(t, c.want, target.Get().VX)
		})
	}
}

func TestRemoteToDrive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	medium := air.NewMedium()
	remoteAddr, driveAddr := air.MustParseAddr("02:00:00:00:00:01"), air.MustParseAddr("02:00:00:00:00:02")
	remoteAir, err := medium.Join(1, remoteAddr, driveAddr)
	require.NoError(t, err)
	driveAir, err := medium.Join(1, driveAddr, remoteAddr)
	require.NoError(t, err)

	remoteBus, remoteLink := newBusLink(8)
	driveBus, driveLink := newBusLink(8)
	for _, bus := range []*spi.Bus{remoteBus, driveBus} {
		go bus.Run(ctx, 100*time.Microsecond)
	}
	go relay.NewService("remote", remoteBus, remoteAir).Run(ctx)
	go relay.NewService("drive", driveBus, driveAir).Run(ctx)

	telemetry := &telemetryLog{}
	command := NewCommandAssembler(joystick.NewScript(joystick.Sample{
		X: joystick.CodeMax, Y: joystick.CodeCenter, Rot: joystick.CodeCenter,
	}), remoteLink)
	command.Observer = telemetry
	remoteLoop := fx.NewLoop()
	command.AddToLoop(remoteLoop)

	target := &drive.Target{}
	plant := drive.NewPlant(drive.DefaultPlantConfig, target)
	tele := NewTelemetryAssembler(driveLink, target)
	tele.Speeds = plant
	driveLoop := fx.NewLoop()
	tele.AddToLoop(driveLoop)
	plant.AddToLoop(driveLoop)

	waitFor(t, func() bool {
		remoteLoop.Cycle(ctx)
		driveLoop.Cycle(ctx)
		return target.Get().VX > 0 && len(telemetry.packets()) > 0
	})
	require.InDelta(t, DefaultMaxLinear, target.Get().VX, 1e-6)
	require.Zero(t, target.Get().VY)
	require.Zero(t, target.Get().Phi)
}
