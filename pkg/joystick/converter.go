package joystick

import (
	"context"
	"sync"
	"time"
)

// Channel indices of the converter.
const (
	ChannelX = iota
	ChannelY
	ChannelRot
	ChannelCount
)

// Converter simulates an edge-triggered three-channel converter: a
// software trigger converts all channels in sequence and signals
// completion once the last result is latched.
type Converter struct {
	// ConversionTime is the delay between trigger and completion.
	ConversionTime time.Duration

	lock    sync.Mutex
	inputs  [ChannelCount]uint32
	results [ChannelCount]uint32
	buttons uint32
	busy    bool
	done    chan struct{}
}

// NewConverter creates a Converter with centered inputs.
func NewConverter() *Converter {
	c := &Converter{ConversionTime: 50 * time.Microsecond}
	c.inputs = [ChannelCount]uint32{CodeCenter, CodeCenter, CodeCenter}
	return c
}

// Set sets the analog input of a channel, clamped to the code range.
func (c *Converter) Set(ch int, code uint32) {
	if code > CodeMax {
		code = CodeMax
	}
	c.lock.Lock()
	c.inputs[ch] = code
	c.lock.Unlock()
}

// SetButtons sets the button bitmask.
func (c *Converter) SetButtons(buttons uint32) {
	c.lock.Lock()
	c.buttons = buttons
	c.lock.Unlock()
}

// Trigger starts a conversion and returns the completion signal. A
// trigger during a conversion joins the running one.
func (c *Converter) Trigger() <-chan struct{} {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.busy {
		return c.done
	}
	c.busy, c.done = true, make(chan struct{})
	done := c.done
	time.AfterFunc(c.ConversionTime, func() {
		c.lock.Lock()
		c.results = c.inputs
		c.busy = false
		c.lock.Unlock()
		close(done)
	})
	return done
}

// Results returns the latched results.
func (c *Converter) Results() [ChannelCount]uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.results
}

// Sample implements Sampler.
func (c *Converter) Sample(ctx context.Context) (Sample, error) {
	select {
	case <-c.Trigger():
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	return Sample{
		X:       c.results[ChannelX],
		Y:       c.results[ChannelY],
		Rot:     c.results[ChannelRot],
		Buttons: c.buttons,
	}, nil
}
