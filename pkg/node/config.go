// Package node assembles the remote and drive sides of the link from
// configuration: a control loop over a simulated bus, and a bridge
// relaying the bus to the air link.
package node

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/omnilink/pkg/air"
	"github.com/robotalks/omnilink/pkg/air/mqtt"
	"github.com/robotalks/omnilink/pkg/assembler"
	fx "github.com/robotalks/omnilink/pkg/framework"
	"github.com/robotalks/omnilink/pkg/monitor"
	"github.com/robotalks/omnilink/pkg/record"
	"github.com/robotalks/omnilink/pkg/relay"
)

// Relay modes by name.
const (
	RelayDecoupled = "decoupled"
	RelayImmediate = "immediate"
)

// Config defines the configurations of a node.
type Config struct {
	// Interval is the control period.
	Interval time.Duration
	// FIFOSize of the simulated bus.
	FIFOSize int
	// BusPeriod is the clock period of the simulated bus, each tick
	// shifts up to spi.DefaultBurst words.
	BusPeriod time.Duration
	RelayMode string
	// ZeroAfter stops the drive after that many cycles without a
	// valid command, 0 holds the last one.
	ZeroAfter   int
	RejectStale bool
	// MonitorURL is the MQTT broker for reports, empty disables.
	MonitorURL     string
	StatusInterval time.Duration
	// RecordPath is the storm database for uplink frames, empty disables.
	RecordPath string
}

var defaultConfig = Config{
	Interval:       5 * time.Millisecond,
	FIFOSize:       8,
	BusPeriod:      100 * time.Microsecond,
	RelayMode:      RelayDecoupled,
	StatusInterval: time.Second,
}

func init() {
	if val := os.Getenv("OMNI_MONITOR_URL"); val != "" {
		defaultConfig.MonitorURL = val
	}
	if val := os.Getenv("OMNI_RECORD"); val != "" {
		defaultConfig.RecordPath = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Control period.")
	flag.IntVar(&defaultConfig.FIFOSize, "fifo", defaultConfig.FIFOSize, "FIFO size of the simulated bus.")
	flag.DurationVar(&defaultConfig.BusPeriod, "bus-period", defaultConfig.BusPeriod, "Clock period of the simulated bus.")
	flag.StringVar(&defaultConfig.RelayMode, "relay-mode", defaultConfig.RelayMode, "Uplink forwarding: decoupled or immediate.")
	flag.IntVar(&defaultConfig.ZeroAfter, "zero-after", defaultConfig.ZeroAfter, "Stop after N cycles without a valid command, 0 holds the last one.")
	flag.BoolVar(&defaultConfig.RejectStale, "reject-stale", defaultConfig.RejectStale, "Reject commands repeating the last counter.")
	flag.StringVar(&defaultConfig.MonitorURL, "monitor-url", defaultConfig.MonitorURL, "MQTT broker URL for monitor reports.")
	flag.DurationVar(&defaultConfig.StatusInterval, "status-interval", defaultConfig.StatusInterval, "Period of link status reports.")
	flag.StringVar(&defaultConfig.RecordPath, "record", defaultConfig.RecordPath, "Database file recording uplink frames.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Mode converts RelayMode.
func (c *Config) Mode() (relay.Mode, error) {
	switch c.RelayMode {
	case "", RelayDecoupled:
		return relay.ForwardDecoupled, nil
	case RelayImmediate:
		return relay.ForwardImmediate, nil
	}
	return 0, fmt.Errorf("unknown relay mode: %q", c.RelayMode)
}

// Policy returns the invalid command policy.
func (c *Config) Policy() assembler.InvalidPolicy {
	if c.ZeroAfter > 0 {
		return assembler.ZeroAfter(c.ZeroAfter)
	}
	return assembler.HoldLast
}

// NewRelay creates a relay service with the configured mode.
func (c *Config) NewRelay(name string, t relay.Transactor, link air.Link) (*relay.Service, error) {
	mode, err := c.Mode()
	if err != nil {
		return nil, err
	}
	s := relay.NewService(name, t, link)
	s.Mode = mode
	return s, nil
}

// Extras are the optional monitor and record facilities.
type Extras struct {
	Queue    *mqtt.Queue
	Reporter *monitor.Reporter
	Store    *record.Store

	statusInterval time.Duration
	relays         []*relay.Service
}

// NewExtras connects the monitor broker and opens the record store as
// configured.
func (c *Config) NewExtras(node string) (*Extras, error) {
	x := &Extras{statusInterval: c.StatusInterval}
	if c.MonitorURL != "" {
		q, err := mqtt.NewQueueFromURL(c.MonitorURL)
		if err != nil {
			return nil, err
		}
		if err := q.Connect(); err != nil {
			return nil, fmt.Errorf("connect monitor broker: %v", err)
		}
		x.Queue, x.Reporter = q, monitor.NewReporter(node, q)
	}
	if c.RecordPath != "" {
		s, err := record.Open(c.RecordPath)
		if err != nil {
			x.Close()
			return nil, err
		}
		x.Store = s
	}
	return x, nil
}

// AttachRelay hooks a relay to the reporter and the store.
func (x *Extras) AttachRelay(s *relay.Service) {
	var recs relay.Recorders
	if x.Reporter != nil {
		recs = append(recs, x.Reporter)
	}
	if x.Store != nil {
		recs = append(recs, x.Store)
	}
	switch len(recs) {
	case 0:
		return
	case 1:
		s.Recorder = recs[0]
	default:
		s.Recorder = recs
	}
	x.relays = append(x.relays, s)
}

// Runnables returns the background tasks.
func (x *Extras) Runnables() []fx.Runnable {
	var runnables []fx.Runnable
	if x.Store != nil {
		runnables = append(runnables, fx.NamedRun("record", x.Store))
	}
	if x.Reporter != nil && len(x.relays) > 0 && x.statusInterval > 0 {
		runnables = append(runnables, fx.NamedRun("status", fx.RunFunc(x.reportStatus)))
	}
	return runnables
}

// Close implements io.Closer.
func (x *Extras) Close() error {
	if x.Queue != nil {
		x.Queue.Close()
	}
	if x.Store != nil {
		if err := x.Store.Close(); err != nil {
			glog.Errorf("record: close: %v", err)
		}
	}
	return nil
}

func (x *Extras) reportStatus(ctx context.Context) error {
	ticker := time.NewTicker(x.statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, s := range x.relays {
				st := s.Stats()
				x.Reporter.Publish(monitor.LinkStatusFrom(s.Name, st))
			}
		}
	}
}
