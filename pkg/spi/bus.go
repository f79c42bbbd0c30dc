package spi

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultBurst is the number of words Run clocks per tick.
const DefaultBurst = 64

// BusStats are counters of a simulated bus.
type BusStats struct {
	Words      uint64
	Frames     uint64
	LostFrames uint64
}

type busWord struct {
	data byte
	eof  bool
}

type transaction struct {
	tx, rx []byte
	n      int
	done   chan int
}

// Bus simulates a synchronous serial bus between a controller-mode
// port (the Port side) and a peripheral (the Transact side).
// Frames are delimited by chip select: a frame begins with the first
// word shifted after the previous end-of-frame.
type Bus struct {
	// Burst is the number of words Run clocks per tick.
	Burst int

	fifoSize int

	lock       sync.Mutex
	txFIFO     []busWord
	rxFIFO     []byte
	watermark  int
	continuous bool
	armed      bool
	handler    InterruptHandler
	inFrame    bool
	txn        *transaction
	posted     *transaction
	stats      BusStats

	closeOnce sync.Once
	closed    chan struct{}
}

// NewBus creates a Bus with the FIFO depth of the controller port.
func NewBus(fifoSize int) *Bus {
	if fifoSize < 1 {
		fifoSize = 1
	}
	return &Bus{
		Burst:    DefaultBurst,
		fifoSize: fifoSize,
		closed:   make(chan struct{}),
	}
}

// Attach wires the interrupt line to h.
func (b *Bus) Attach(h InterruptHandler) {
	b.lock.Lock()
	b.handler = h
	b.lock.Unlock()
}

// FIFOSize implements Port.
func (b *Bus) FIFOSize() int {
	return b.fifoSize
}

// TxFIFOCount implements Port.
func (b *Bus) TxFIFOCount() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.txFIFO)
}

// RxFIFOCount implements Port.
func (b *Bus) RxFIFOCount() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.rxFIFO)
}

// WriteData implements Port. Writing into a full FIFO drops the word
// as the hardware does.
func (b *Bus) WriteData(d byte) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if len(b.txFIFO) >= b.fifoSize {
		glog.V(3).Info("bus: tx fifo overrun")
		return
	}
	b.txFIFO = append(b.txFIFO, busWord{data: d})
}

// ReadData implements Port. Reading an empty FIFO returns 0.
func (b *Bus) ReadData() byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	if len(b.rxFIFO) == 0 {
		return 0
	}
	d := b.rxFIFO[0]
	b.rxFIFO = b.rxFIFO[1:]
	return d
}

// FlushFIFOs implements Port.
func (b *Bus) FlushFIFOs() {
	b.lock.Lock()
	b.txFIFO = b.txFIFO[:0]
	b.rxFIFO = b.rxFIFO[:0]
	b.lock.Unlock()
}

// SetRxWatermark implements Port.
func (b *Bus) SetRxWatermark(n int) {
	b.lock.Lock()
	b.watermark = n
	b.lock.Unlock()
}

// SetContinuous implements Port.
func (b *Bus) SetContinuous(on bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.continuous = on
	if on {
		return
	}
	if n := len(b.txFIFO); n > 0 {
		b.txFIFO[n-1].eof = true
	} else if b.inFrame {
		b.endFrameLocked()
	}
}

// EnableRxInterrupt implements Port.
func (b *Bus) EnableRxInterrupt(on bool) {
	b.lock.Lock()
	b.armed = on
	b.lock.Unlock()
}

// Step shifts at most one word in both directions and delivers the
// interrupt if it is pending. It returns false if nothing happened.
func (b *Bus) Step() bool {
	b.lock.Lock()
	shifted := b.shiftLocked()
	h := b.handler
	fire := h != nil && b.armed && len(b.rxFIFO) > b.watermark
	b.lock.Unlock()
	if fire {
		h.HandleInterrupt()
	}
	return shifted || fire
}

// Run clocks the bus until ctx is done or the bus is closed.
func (b *Bus) Run(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.closed:
			return nil
		case <-ticker.C:
			for i := 0; i < b.Burst && b.Step(); i++ {
			}
		}
	}
}

// Transact implements the peripheral side: it posts a transaction
// which binds to the next frame and blocks until that frame ends.
// It returns the number of words clocked in the frame.
func (b *Bus) Transact(ctx context.Context, tx, rx []byte) (int, error) {
	t := &transaction{tx: tx, rx: rx, done: make(chan int, 1)}
	b.lock.Lock()
	select {
	case <-b.closed:
		b.lock.Unlock()
		return 0, ErrBusClosed
	default:
	}
	if b.posted != nil {
		b.lock.Unlock()
		return 0, ErrBusy
	}
	b.posted = t
	b.lock.Unlock()

	select {
	case n := <-t.done:
		return n, nil
	case <-ctx.Done():
	case <-b.closed:
	}

	b.lock.Lock()
	if b.posted == t {
		b.posted = nil
	}
	if b.txn == t {
		b.txn = nil
	}
	b.lock.Unlock()
	select {
	case n := <-t.done:
		return n, nil
	default:
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return 0, ErrBusClosed
}

// Pending reports whether a peripheral transaction is waiting for a frame.
func (b *Bus) Pending() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.posted != nil
}

// Stats returns a snapshot of the counters.
func (b *Bus) Stats() BusStats {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.stats
}

// Close closes the bus, pending transactions return ErrBusClosed.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

func (b *Bus) shiftLocked() bool {
	if len(b.txFIFO) == 0 || len(b.rxFIFO) >= b.fifoSize {
		return false
	}
	w := b.txFIFO[0]
	b.txFIFO = b.txFIFO[1:]
	if !b.inFrame {
		b.inFrame = true
		b.txn, b.posted = b.posted, nil
		b.stats.Frames++
	}
	var out byte
	if t := b.txn; t != nil {
		if t.n < len(t.rx) {
			t.rx[t.n] = w.data
		}
		if t.n < len(t.tx) {
			out = t.tx[t.n]
		}
		t.n++
	}
	b.rxFIFO = append(b.rxFIFO, out)
	b.stats.Words++
	if w.eof {
		b.endFrameLocked()
	}
	return true
}

func (b *Bus) endFrameLocked() {
	b.inFrame = false
	if t := b.txn; t != nil {
		b.txn = nil
		t.done <- t.n
		return
	}
	b.stats.LostFrames++
}
