package node

import (
	"context"

	"github.com/robotalks/omnilink/pkg/air"
	"github.com/robotalks/omnilink/pkg/assembler"
	"github.com/robotalks/omnilink/pkg/drive"
	fx "github.com/robotalks/omnilink/pkg/framework"
	"github.com/robotalks/omnilink/pkg/joystick"
	"github.com/robotalks/omnilink/pkg/relay"
	"github.com/robotalks/omnilink/pkg/spi"
)

// Side is a control node with its bridge: the node runs its loop as
// the bus controller, the bridge is the bus peripheral.
type Side struct {
	Name   string
	Bus    *spi.Bus
	Link   *spi.Link
	Loop   *fx.Loop
	Bridge *relay.Service

	conf *Config
}

// Runnables returns the bus clock, the bridge and the control loop.
func (s *Side) Runnables() []fx.Runnable {
	period := s.conf.BusPeriod
	return []fx.Runnable{
		fx.NamedRun(s.Name+"/bus", fx.RunFunc(func(ctx context.Context) error {
			return s.Bus.Run(ctx, period)
		})),
		fx.NamedRun(s.Name+"/bridge", s.Bridge),
		fx.NamedRun(s.Name+"/loop", s.Loop),
	}
}

func (c *Config) newSide(name string, link air.Link) (*Side, error) {
	bus := spi.NewBus(c.FIFOSize)
	engine := spi.NewEngine(bus)
	bus.Attach(engine)
	bridge, err := c.NewRelay(name+"-bridge", bus, link)
	if err != nil {
		return nil, err
	}
	loop := fx.NewLoop()
	loop.Interval = c.Interval
	return &Side{
		Name:   name,
		Bus:    bus,
		Link:   spi.NewLink(engine),
		Loop:   loop,
		Bridge: bridge,
		conf:   c,
	}, nil
}

// Remote is the joystick side.
type Remote struct {
	*Side
	Command *assembler.CommandAssembler
}

// NewRemote creates the remote side sending commands over link.
func (c *Config) NewRemote(sampler joystick.Sampler, link air.Link) (*Remote, error) {
	side, err := c.newSide("remote", link)
	if err != nil {
		return nil, err
	}
	r := &Remote{Side: side, Command: assembler.NewCommandAssembler(sampler, side.Link)}
	r.Command.AddToLoop(side.Loop)
	return r, nil
}

// Drive is the motor side.
type Drive struct {
	*Side
	Target    *drive.Target
	Plant     *drive.Plant
	Telemetry *assembler.TelemetryAssembler
}

// NewDrive creates the drive side sending telemetry over link.
func (c *Config) NewDrive(link air.Link) (*Drive, error) {
	side, err := c.newSide("drive", link)
	if err != nil {
		return nil, err
	}
	d := &Drive{Side: side, Target: &drive.Target{}}
	d.Plant = drive.NewPlant(drive.DefaultPlantConfig, d.Target)
	d.Telemetry = assembler.NewTelemetryAssembler(side.Link, d.Target)
	d.Telemetry.Speeds = d.Plant
	for i, sensor := range d.Plant.CurrentSensors() {
		d.Telemetry.Channels[i] = sensor
	}
	d.Telemetry.Policy = c.Policy()
	d.Telemetry.RejectStale = c.RejectStale
	side.Loop.Add(d.Telemetry, d.Plant)
	return d, nil
}

// Attach hooks the remote to the monitor and record facilities.
func (r *Remote) Attach(x *Extras) {
	x.AttachRelay(r.Bridge)
	if x.Reporter != nil {
		r.Command.Observer = x.Reporter
	}
}

// Attach hooks the drive to the monitor and record facilities.
func (d *Drive) Attach(x *Extras) {
	x.AttachRelay(d.Bridge)
	if x.Reporter != nil {
		d.Telemetry.Observer = x.Reporter
	}
}
