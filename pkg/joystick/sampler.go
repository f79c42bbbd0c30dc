// Package joystick samples the three joystick axes of the remote
// control node as 12-bit converter codes.
package joystick

import (
	"context"
	"sync"
)

// Code range of a 12-bit converter.
const (
	CodeMax    = 4095
	CodeCenter = 2048
)

// Sample is one reading of the joystick axes.
type Sample struct {
	X       uint32
	Y       uint32
	Rot     uint32
	Buttons uint32
}

// Centered is the reading of an untouched joystick.
var Centered = Sample{X: CodeCenter, Y: CodeCenter, Rot: CodeCenter}

// Sampler takes one joystick sample, blocking until it is available.
type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// SampleFunc is the func form of Sampler.
type SampleFunc func(ctx context.Context) (Sample, error)

// Sample implements Sampler.
func (f SampleFunc) Sample(ctx context.Context) (Sample, error) {
	return f(ctx)
}

// Script replays a fixed sequence of samples, holding the last one
// once exhausted.
type Script struct {
	lock    sync.Mutex
	samples []Sample
	pos     int
}

// NewScript creates a Script.
func NewScript(samples ...Sample) *Script {
	return &Script{samples: samples}
}

// Sample implements Sampler.
func (s *Script) Sample(ctx context.Context) (Sample, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.samples) == 0 {
		return Centered, nil
	}
	smp := s.samples[s.pos]
	if s.pos+1 < len(s.samples) {
		s.pos++
	}
	return smp, nil
}

// Push appends samples.
func (s *Script) Push(samples ...Sample) {
	s.lock.Lock()
	s.samples = append(s.samples, samples...)
	s.lock.Unlock()
}
