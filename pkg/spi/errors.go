package spi

import "errors"

var (
	// ErrBusy indicates a transfer is still in progress.
	ErrBusy = errors.New("transfer in progress")
	// ErrBusClosed indicates the simulated bus has been closed.
	ErrBusClosed = errors.New("bus closed")
	// ErrShortBuffer indicates a peripheral transaction buffer is too small.
	ErrShortBuffer = errors.New("short buffer")
)
