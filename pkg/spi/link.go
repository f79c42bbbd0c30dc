package spi

import "github.com/robotalks/omnilink/pkg/wire"

// Link wraps an Engine with buffers it owns. Frames are copied in on
// Send and out on Received so the caller never holds a reference into
// a transfer in flight.
type Link struct {
	engine *Engine
	tx, rx wire.Frame
}

// NewLink creates a Link over an Engine.
func NewLink(e *Engine) *Link {
	return &Link{engine: e}
}

// Engine returns the underlying Engine.
func (l *Link) Engine() *Engine {
	return l.engine
}

// Ready reports whether the previous transfer has completed.
func (l *Link) Ready() bool {
	return l.engine.IsComplete()
}

// Received copies out the frame received by the last completed
// transfer. Before the first transfer it is all zeros.
func (l *Link) Received() (wire.Frame, error) {
	if !l.Ready() {
		return wire.Frame{}, ErrBusy
	}
	return l.rx, nil
}

// Send starts a transfer of tx if the link is ready, otherwise
// returns ErrBusy.
func (l *Link) Send(tx *wire.Frame) error {
	if !l.Ready() {
		return ErrBusy
	}
	l.tx = *tx
	return l.engine.TryStart(&l.tx, &l.rx)
}

// SendWait waits (spinning) for the previous transfer and starts a
// transfer of tx.
func (l *Link) SendWait(tx *wire.Frame) {
	l.engine.awaitIdle()
	l.tx = *tx
	l.engine.Start(&l.tx, &l.rx)
}
