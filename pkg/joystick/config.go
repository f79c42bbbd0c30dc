package joystick

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Source kinds.
const (
	SourceDevice    = "device"
	SourceConverter = "converter"
	SourceCentered  = "centered"
)

// Config defines the configurations of the joystick sampler.
type Config struct {
	Source      string
	DeviceIndex int
	Axes        AxisMap
	Verbose     bool
}

var defaultConfig = Config{
	Source:      SourceDevice,
	DeviceIndex: -1,
	Axes:        DefaultAxisMap,
}

func init() {
	if val := os.Getenv("OMNI_JOYSTICK"); val != "" {
		defaultConfig.Source = val
	}
	if val := os.Getenv("OMNI_JOYSTICK_DEVICE"); val != "" {
		if index, err := strconv.Atoi(val); err == nil {
			defaultConfig.DeviceIndex = index
		}
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Source, "joystick", defaultConfig.Source, "Joystick source: device, converter or centered.")
	flag.IntVar(&defaultConfig.DeviceIndex, "joystick-device", defaultConfig.DeviceIndex, "Device index, -1 for auto detection.")
	flag.IntVar(&defaultConfig.Axes.X, "joystick-axis-x", defaultConfig.Axes.X, "Device axis for vx.")
	flag.IntVar(&defaultConfig.Axes.Y, "joystick-axis-y", defaultConfig.Axes.Y, "Device axis for vy.")
	flag.IntVar(&defaultConfig.Axes.Rot, "joystick-axis-rot", defaultConfig.Axes.Rot, "Device axis for phi.")
	flag.BoolVar(&defaultConfig.Axes.InvertY, "joystick-invert-y", defaultConfig.Axes.InvertY, "Invert the device Y axis.")
	flag.BoolVar(&defaultConfig.Verbose, "joystick-verbose", defaultConfig.Verbose, "Log joystick events.")
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

// NewSampler creates the configured Sampler.
func (c *Config) NewSampler() (Sampler, error) {
	switch c.Source {
	case SourceDevice:
		s := NewDeviceSampler(c.DeviceIndex)
		s.Axes, s.Verbose = c.Axes, c.Verbose
		return s, nil
	case SourceConverter:
		return NewConverter(), nil
	case SourceCentered:
		return NewScript(), nil
	}
	return nil, fmt.Errorf("unknown joystick source: %q", c.Source)
}
