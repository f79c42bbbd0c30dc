// Package relay bridges the wired frame exchange with a control node
// and the air link to the peer bridge.
package relay

import (
	"context"
	"sync"

	"github.com/robotalks/omnilink/pkg/wire"
)

// Transactor is the peripheral side of the wired link: it exchanges one
// frame per call, blocking until the control node clocks it.
type Transactor interface {
	Transact(ctx context.Context, tx, rx []byte) (int, error)
}

// Slot holds the most recent frame, newer stores overwrite older ones.
type Slot struct {
	lock  sync.Mutex
	frame wire.Frame
	seq   uint64
}

// Store replaces the frame.
func (s *Slot) Store(f *wire.Frame) {
	s.lock.Lock()
	s.frame = *f
	s.seq++
	s.lock.Unlock()
}

// Load returns a copy of the frame and the number of stores so far.
func (s *Slot) Load() (wire.Frame, uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.frame, s.seq
}

// State is the frame state of one bridge endpoint.
type State struct {
	// Downlink is air to wire, written by the receive callback.
	Downlink Slot
	// Uplink is wire to air, written by the relay loop.
	Uplink Slot
}
