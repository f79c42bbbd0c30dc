package assembler

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/omnilink/pkg/drive"
	fx "github.com/robotalks/omnilink/pkg/framework"
	"github.com/robotalks/omnilink/pkg/spi"
	"github.com/robotalks/omnilink/pkg/wire"
)

// MotorCount is the number of speed and analog slots in telemetry.
const MotorCount = 4

// SpeedSource provides the current motor speeds.
type SpeedSource interface {
	MotorSpeeds() [MotorCount]float32
}

// AnalogChannel performs one blocking analog conversion.
type AnalogChannel interface {
	Read(ctx context.Context) (uint16, error)
}

// InvalidPolicy decides the velocity target when no valid command
// arrives. The zero value holds the last valid target forever.
type InvalidPolicy struct {
	// ZeroAfter zeroes the target after this many consecutive cycles
	// without a valid command, 0 disables.
	ZeroAfter int
}

// HoldLast keeps the last valid target.
var HoldLast = InvalidPolicy{}

// ZeroAfter zeroes the target after n consecutive invalid cycles.
func ZeroAfter(n int) InvalidPolicy {
	return InvalidPolicy{ZeroAfter: n}
}

// TelemetryStats are counters of a TelemetryAssembler.
type TelemetryStats struct {
	Cycles    uint64
	Skipped   uint64
	Accepted  uint64
	Invalid   uint64
	Stale     uint64
	Failsafes uint64
	Sent      uint64
	ReadErrs  uint64
}

// TelemetryAssembler interprets the command received by the previous
// transfer and sends telemetry each cycle the link is ready.
type TelemetryAssembler struct {
	Link     *spi.Link
	Target   *drive.Target
	Speeds   SpeedSource
	Channels [MotorCount]AnalogChannel
	Policy   InvalidPolicy
	// RejectStale treats a command with the counter of the last
	// accepted one as invalid.
	RejectStale bool
	Observer    CommandObserver

	counter     uint32
	lastCounter uint32
	accepted    bool
	invalidRun  int

	cycles    atomic.Uint64
	skipped   atomic.Uint64
	accepts   atomic.Uint64
	invalid   atomic.Uint64
	stale     atomic.Uint64
	failsafes atomic.Uint64
	sent      atomic.Uint64
	readErrs  atomic.Uint64
}

// NewTelemetryAssembler creates a TelemetryAssembler.
func NewTelemetryAssembler(link *spi.Link, target *drive.Target) *TelemetryAssembler {
	return &TelemetryAssembler{Link: link, Target: target}
}

// AddToLoop implements LoopAdder.
func (a *TelemetryAssembler) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvControl, a)
}

// Stats returns a snapshot of the counters.
func (a *TelemetryAssembler) Stats() TelemetryStats {
	return TelemetryStats{
		Cycles:    a.cycles.Load(),
		Skipped:   a.skipped.Load(),
		Accepted:  a.accepts.Load(),
		Invalid:   a.invalid.Load(),
		Stale:     a.stale.Load(),
		Failsafes: a.failsafes.Load(),
		Sent:      a.sent.Load(),
		ReadErrs:  a.readErrs.Load(),
	}
}

// Control implements Controller.
func (a *TelemetryAssembler) Control(cc fx.ControlContext) error {
	a.cycles.Add(1)
	if !a.Link.Ready() {
		a.skipped.Add(1)
		return nil
	}
	rx, err := a.Link.Received()
	if err != nil {
		a.skipped.Add(1)
		return nil
	}
	a.interpret(&rx)

	var pkt wire.TelemetryPacket
	if src := a.Speeds; src != nil {
		pkt.Speeds = src.MotorSpeeds()
	}
	for i, ch := range a.Channels {
		if ch == nil {
			continue
		}
		code, err := ch.Read(cc.Context())
		if err != nil {
			a.readErrs.Add(1)
			glog.V(2).Infof("telemetry: analog %d: %v", i, err)
			continue
		}
		pkt.Samples[i] = code
	}
	pkt.Stamp(a.counter, cc.Tick())
	f := pkt.Frame()
	if err := a.Link.Send(&f); err != nil {
		a.skipped.Add(1)
		return nil
	}
	a.counter++
	a.sent.Add(1)
	return nil
}

func (a *TelemetryAssembler) interpret(rx *wire.Frame) {
	cmd, ok := wire.DecodeCommand(rx)
	if !ok {
		a.invalid.Add(1)
		a.reject()
		return
	}
	if a.RejectStale && a.accepted && cmd.Header.Counter() == a.lastCounter {
		a.stale.Add(1)
		a.reject()
		return
	}
	a.accepted, a.lastCounter, a.invalidRun = true, cmd.Header.Counter(), 0
	a.accepts.Add(1)
	a.Target.Set(drive.Velocity{VX: cmd.VX, VY: cmd.VY, Phi: cmd.Phi})
	if o := a.Observer; o != nil {
		o.ObserveCommand(cmd)
	}
}

func (a *TelemetryAssembler) reject() {
	a.invalidRun++
	if n := a.Policy.ZeroAfter; n > 0 && a.invalidRun == n {
		a.failsafes.Add(1)
		glog.Warningf("telemetry: no valid command for %d cycles, stopping", n)
		a.Target.Set(drive.Velocity{})
	}
}
