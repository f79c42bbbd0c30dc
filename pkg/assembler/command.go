package assembler

import (
	"sync/atomic"

	"github.com/golang/glog"

	fx "github.com/robotalks/omnilink/pkg/framework"
	"github.com/robotalks/omnilink/pkg/joystick"
	"github.com/robotalks/omnilink/pkg/spi"
	"github.com/robotalks/omnilink/pkg/wire"
)

// Speed limits of the remote control node.
const (
	DefaultMaxLinear  float32 = 0.5
	DefaultMaxAngular float32 = 2.0
)

// TelemetryObserver receives telemetry decoded on the remote node.
type TelemetryObserver interface {
	ObserveTelemetry(wire.TelemetryPacket)
}

// CommandObserver receives commands accepted on the drive node.
type CommandObserver interface {
	ObserveCommand(wire.CommandPacket)
}

// CommandStats are counters of a CommandAssembler.
type CommandStats struct {
	Cycles       uint64
	Sent         uint64
	Busy         uint64
	SampleErrors uint64
	Telemetry    uint64
	Invalid      uint64
}

// CommandAssembler samples the joystick and sends a command packet
// each cycle the link is ready.
type CommandAssembler struct {
	Sampler    joystick.Sampler
	Link       *spi.Link
	Mapper     Mapper
	MaxLinear  float32
	MaxAngular float32
	InvertX    bool
	InvertY    bool
	InvertRot  bool
	Observer   TelemetryObserver

	pending wire.CommandPacket
	count   uint32

	cycles       atomic.Uint64
	sent         atomic.Uint64
	busy         atomic.Uint64
	sampleErrors atomic.Uint64
	telemetry    atomic.Uint64
	invalid      atomic.Uint64
}

// NewCommandAssembler creates a CommandAssembler with defaults.
func NewCommandAssembler(sampler joystick.Sampler, link *spi.Link) *CommandAssembler {
	return &CommandAssembler{
		Sampler:    sampler,
		Link:       link,
		Mapper:     DefaultMapper,
		MaxLinear:  DefaultMaxLinear,
		MaxAngular: DefaultMaxAngular,
	}
}

// AddToLoop implements LoopAdder.
func (a *CommandAssembler) AddToLoop(loop *fx.Loop) {
	if adder, ok := a.Sampler.(fx.LoopAdder); ok {
		loop.Add(adder)
	}
	loop.AddController(fx.PrLvControl, a)
}

// Pending returns the last assembled command.
func (a *CommandAssembler) Pending() wire.CommandPacket {
	return a.pending
}

// Stats returns a snapshot of the counters.
func (a *CommandAssembler) Stats() CommandStats {
	return CommandStats{
		Cycles:       a.cycles.Load(),
		Sent:         a.sent.Load(),
		Busy:         a.busy.Load(),
		SampleErrors: a.sampleErrors.Load(),
		Telemetry:    a.telemetry.Load(),
		Invalid:      a.invalid.Load(),
	}
}

// Control implements Controller.
func (a *CommandAssembler) Control(cc fx.ControlContext) error {
	a.cycles.Add(1)
	smp, err := a.Sampler.Sample(cc.Context())
	if err != nil {
		a.sampleErrors.Add(1)
		glog.V(2).Infof("command: sample: %v", err)
		return nil
	}
	a.pending.VX = a.Mapper.Map(smp.X, a.MaxLinear, a.InvertX)
	a.pending.VY = a.Mapper.Map(smp.Y, a.MaxLinear, a.InvertY)
	a.pending.Phi = a.Mapper.Map(smp.Rot, a.MaxAngular, a.InvertRot)
	a.pending.Buttons = smp.Buttons
	a.pending.Stamp(a.count, a.count)

	if !a.Link.Ready() {
		a.busy.Add(1)
		return nil
	}
	if a.count > 0 {
		a.observe()
	}
	f := a.pending.Frame()
	if err := a.Link.Send(&f); err != nil {
		a.busy.Add(1)
		return nil
	}
	a.count++
	a.sent.Add(1)
	glog.V(3).Infof("command: sent %s", a.pending)
	return nil
}

// observe decodes the frame received by the previous transfer.
func (a *CommandAssembler) observe() {
	rx, err := a.Link.Received()
	if err != nil {
		return
	}
	t, ok := wire.DecodeTelemetry(&rx)
	if !ok {
		a.invalid.Add(1)
		return
	}
	a.telemetry.Add(1)
	if o := a.Observer; o != nil {
		o.ObserveTelemetry(t)
	}
}
