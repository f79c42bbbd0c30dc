package joystick

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/omnilink/pkg/framework"
	"github.com/robotalks/omnilink/pkg/joystick/device"
)

// AxisMap assigns device axes to joystick channels.
type AxisMap struct {
	X, Y, Rot                   int
	InvertX, InvertY, InvertRot bool
}

// DefaultAxisMap fits common gamepads: left stick drives, right stick
// turns, and device Y grows downwards.
var DefaultAxisMap = AxisMap{X: 0, Y: 1, Rot: 3, InvertY: true}

// AxisCode rescales a device axis value in [-32767, 32767] to a code in
// [0, CodeMax] with 0 landing on CodeCenter.
func AxisCode(value int, invert bool) uint32 {
	if invert {
		value = -value
	}
	if value < -32767 {
		value = -32767
	} else if value > 32767 {
		value = 32767
	}
	return uint32(((value+32767)*CodeMax + 32767) / 65534)
}

// DeviceSampler samples a host joystick device. It must be run (or
// added to a loop) to open the device and track its events.
type DeviceSampler struct {
	DeviceIndex int
	Axes        AxisMap
	Verbose     bool

	lock    sync.Mutex
	state   Sample
	name    string
	present bool
}

// NewDeviceSampler creates a DeviceSampler, index -1 detects the device.
func NewDeviceSampler(index int) *DeviceSampler {
	return &DeviceSampler{DeviceIndex: index, Axes: DefaultAxisMap, state: Centered}
}

// AddToLoop implements LoopAdder.
func (s *DeviceSampler) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(s)
}

// Present reports whether a device is open and its name.
func (s *DeviceSampler) Present() (bool, string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.present, s.name
}

// Sample implements Sampler. Without a device the joystick reads as
// centered.
func (s *DeviceSampler) Sample(ctx context.Context) (Sample, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state, nil
}

// Run implements Runnable.
func (s *DeviceSampler) Run(ctx context.Context) error {
	retry := time.After(0)
	var eventCh chan device.Event
	var dev device.Device
	defer func() {
		if dev != nil {
			dev.Close()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-retry:
			retry = nil
			var err error
			if dev, err = s.open(); err == device.ErrUnsupported {
				return err
			}
			if dev == nil {
				retry = time.After(time.Second)
				continue
			}
			glog.Infof("joystick %d %q opened", dev.Index(), dev.Name())
			s.lock.Lock()
			s.present, s.name = true, dev.Name()
			s.lock.Unlock()
			eventCh = make(chan device.Event, 1)
			go s.poll(dev, eventCh)
		case ev, ok := <-eventCh:
			if ok {
				s.apply(ev)
				continue
			}
			dev.Close()
			dev, eventCh = nil, nil
			s.lock.Lock()
			s.present, s.state = false, Centered
			s.lock.Unlock()
			retry = time.After(time.Second)
		}
	}
}

func (s *DeviceSampler) open() (device.Device, error) {
	var dev device.Device
	var err error
	if s.DeviceIndex >= 0 {
		dev, err = device.Open(s.DeviceIndex)
	} else {
		dev, err = device.DetectAndOpen(0)
	}
	if err != nil {
		glog.V(1).Infof("joystick: open: %v", err)
		return nil, err
	}
	return dev, nil
}

func (s *DeviceSampler) poll(dev device.Device, ch chan<- device.Event) {
	defer close(ch)
	for {
		ev, err := dev.ReadEvent()
		if err != nil {
			glog.Warningf("joystick read error: %v", err)
			return
		}
		ch <- ev
	}
}

func (s *DeviceSampler) apply(ev device.Event) {
	s.lock.Lock()
	defer s.lock.Unlock()
	switch e := ev.(type) {
	case device.ButtonEvent:
		if s.Verbose {
			glog.Infof("button %d: %v", e.Index(), e.Pressed())
		}
		if e.Index() < 32 {
			bit := uint32(1) << uint(e.Index())
			if e.Pressed() {
				s.state.Buttons |= bit
			} else {
				s.state.Buttons &^= bit
			}
		}
	case device.AxisEvent:
		if s.Verbose {
			glog.Infof("axis %d: %d", e.Index(), e.Value())
		}
		switch e.Index() {
		case s.Axes.X:
			s.state.X = AxisCode(e.Value(), s.Axes.InvertX)
		case s.Axes.Y:
			s.state.Y = AxisCode(e.Value(), s.Axes.InvertY)
		case s.Axes.Rot:
			s.state.Rot = AxisCode(e.Value(), s.Axes.InvertRot)
		}
	}
}
