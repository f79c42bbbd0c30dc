package spi

// Port is the register-level view of a controller-mode serial port.
// Implementations may block (spin) internally when the hardware
// requires it, the engine itself never does outside Start.
type Port interface {
	// FIFOSize returns the depth of both TX and RX FIFOs in words.
	FIFOSize() int
	// TxFIFOCount returns the number of words queued for transmit.
	TxFIFOCount() int
	// RxFIFOCount returns the number of words received and not yet read.
	RxFIFOCount() int
	// WriteData queues one word for transmit.
	WriteData(b byte)
	// ReadData pops one received word.
	ReadData() byte
	// FlushFIFOs discards queued TX and unread RX words.
	FlushFIFOs()
	// SetRxWatermark sets the RX level above which the interrupt fires.
	SetRxWatermark(n int)
	// SetContinuous keeps chip select asserted between words. Clearing it
	// ends the frame after the last queued word.
	SetContinuous(bool)
	// EnableRxInterrupt arms or disarms the RX interrupt.
	EnableRxInterrupt(bool)
}

// InterruptHandler is invoked from interrupt context.
type InterruptHandler interface {
	HandleInterrupt()
}

// HandleInterruptFunc is the func form of InterruptHandler.
type HandleInterruptFunc func()

// HandleInterrupt implements InterruptHandler.
func (f HandleInterruptFunc) HandleInterrupt() {
	f()
}
