package spi

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/robotalks/omnilink/pkg/wire"
)

// State is the state of a transfer engine.
type State int32

// Engine states.
const (
	StateIdle State = iota
	StateFilling
	StateAwaitingCompletion
)

// String implements Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFilling:
		return "filling"
	case StateAwaitingCompletion:
		return "awaiting-completion"
	}
	return "unknown"
}

// Engine transfers one frame at a time over a Port, full-duplex.
// One Engine is instantiated per physical link. Start/TryStart must be
// called from a single goroutine (the control loop), HandleInterrupt
// from the interrupt context of the same port.
type Engine struct {
	// Yield is called on every spin while Start waits for the previous
	// transfer to complete. nil spins without yielding.
	Yield func()

	port        Port
	fifoSize    int
	rxWatermark int

	// owned by the engine between Start and completion.
	tx, rx     *wire.Frame
	txCount    int
	rxCount    int
	endOfFrame bool

	state     atomic.Int32
	complete  atomic.Bool
	transfers atomic.Uint64

	doneLock sync.Mutex
	done     chan struct{}
}

// NewEngine creates an Engine over port and resets the port.
func NewEngine(port Port) *Engine {
	e := &Engine{port: port, fifoSize: port.FIFOSize()}
	if e.fifoSize > 1 {
		e.rxWatermark = e.fifoSize - 2
	}
	if e.rxWatermark >= wire.FrameSize {
		e.rxWatermark = wire.FrameSize - 1
	}
	done := make(chan struct{})
	close(done)
	e.done = done
	e.complete.Store(true)

	port.EnableRxInterrupt(false)
	port.FlushFIFOs()
	port.SetRxWatermark(e.rxWatermark)
	return e
}

// State returns the current state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// IsComplete reports whether the last transfer has completed. It is
// true before the first transfer.
func (e *Engine) IsComplete() bool {
	return e.complete.Load()
}

// Transfers returns the number of completed transfers.
func (e *Engine) Transfers() uint64 {
	return e.transfers.Load()
}

// Done returns a chan closed when the current transfer completes.
func (e *Engine) Done() <-chan struct{} {
	e.doneLock.Lock()
	defer e.doneLock.Unlock()
	return e.done
}

// Wait waits until the current transfer completes or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	select {
	case <-e.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Progress returns the byte counters of the current or last transfer.
// The counters are owned by HandleInterrupt and are not synchronized:
// call it from interrupt context or once IsComplete reports true, any
// other concurrent call is a data race.
func (e *Engine) Progress() (tx, rx int) {
	return e.txCount, e.rxCount
}

// Start starts a transfer sending tx and receiving into rx.
// If a transfer is in progress, Start spins until it completes.
// This is a true busy wait unless Yield is set, and never times out.
// Neither buffer may be touched by the caller until IsComplete.
func (e *Engine) Start(tx, rx *wire.Frame) {
	e.awaitIdle()
	e.begin(tx, rx)
}

// TryStart is the non-blocking form of Start, it returns ErrBusy
// without touching any state if a transfer is in progress.
func (e *Engine) TryStart(tx, rx *wire.Frame) error {
	if !e.complete.Load() {
		return ErrBusy
	}
	e.begin(tx, rx)
	return nil
}

// HandleInterrupt implements InterruptHandler.
func (e *Engine) HandleInterrupt() {
	if e.State() != StateAwaitingCompletion {
		return
	}
	e.port.EnableRxInterrupt(false)

	for e.rxCount < wire.FrameSize && e.port.RxFIFOCount() > 0 {
		e.rx[e.rxCount] = e.port.ReadData()
		e.rxCount++
	}

	// a short tail must not wait for a full watermark batch.
	if remaining := wire.FrameSize - e.rxCount; remaining <= e.rxWatermark {
		watermark := 0
		if remaining > 1 {
			watermark = remaining - 1
		}
		e.port.SetRxWatermark(watermark)
	}

	e.fill()

	if e.txCount == wire.FrameSize && e.rxCount == wire.FrameSize {
		e.finish()
		return
	}
	e.port.EnableRxInterrupt(true)
}

func (e *Engine) awaitIdle() {
	for !e.complete.Load() {
		if e.Yield != nil {
			e.Yield()
		}
	}
}

func (e *Engine) begin(tx, rx *wire.Frame) {
	e.state.Store(int32(StateFilling))
	e.tx, e.rx = tx, rx
	e.txCount, e.rxCount, e.endOfFrame = 0, 0, false
	e.doneLock.Lock()
	e.done = make(chan struct{})
	e.doneLock.Unlock()
	e.complete.Store(false)

	e.port.FlushFIFOs()
	e.port.SetRxWatermark(e.rxWatermark)
	e.port.SetContinuous(true)
	e.fill()

	e.state.Store(int32(StateAwaitingCompletion))
	e.port.EnableRxInterrupt(true)
}

// fill tops up the TX FIFO. Words in flight are bounded by the FIFO
// depth so RX can never overflow.
func (e *Engine) fill() {
	for e.txCount < wire.FrameSize &&
		e.port.TxFIFOCount() < e.fifoSize &&
		e.txCount-e.rxCount < e.fifoSize {
		e.port.WriteData(e.tx[e.txCount])
		e.txCount++
	}
	if e.txCount == wire.FrameSize && !e.endOfFrame {
		e.port.SetContinuous(false)
		e.endOfFrame = true
	}
}

func (e *Engine) finish() {
	e.doneLock.Lock()
	done := e.done
	e.doneLock.Unlock()
	e.tx, e.rx = nil, nil
	e.state.Store(int32(StateIdle))
	e.transfers.Add(1)
	e.complete.Store(true)
	close(done)
}
