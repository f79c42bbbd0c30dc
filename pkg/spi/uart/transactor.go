// Package uart exchanges fixed-size frames with a control node over a
// serial line, standing in for the peripheral side of the bus on hosts.
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// DefaultReadTimeout bounds a single read so cancellation is observed.
const DefaultReadTimeout = 100 * time.Millisecond

// ErrNotOpen indicates the transactor has no port.
var ErrNotOpen = errors.New("serial port not open")

// Line is the part of serial.Port used by the transactor.
type Line interface {
	io.ReadWriter
	ResetInputBuffer() error
	Close() error
}

// Transactor writes the outgoing frame and reads one incoming frame of
// the same size per transaction.
type Transactor struct {
	lock sync.Mutex
	line Line
}

// Open opens a serial port in 8N1 mode.
func Open(portName string, baudRate int) (*Transactor, error) {
	if portName == "" {
		return nil, errors.New("serial port is empty")
	}
	if baudRate <= 0 {
		return nil, fmt.Errorf("invalid serial baud rate: %d", baudRate)
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", portName, err)
	}
	if err := port.SetReadTimeout(DefaultReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set serial read timeout: %w", err)
	}
	glog.Infof("uart: opened %s at %d baud", portName, baudRate)
	return New(port), nil
}

// New creates a Transactor over an opened line.
func New(line Line) *Transactor {
	return &Transactor{line: line}
}

// Transact writes tx and reads len(rx) bytes into rx.
// A read timeout after the first byte ends the frame early: the short
// count is returned and any buffered input is discarded so the next
// transaction starts aligned.
func (t *Transactor) Transact(ctx context.Context, tx, rx []byte) (int, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.line == nil {
		return 0, ErrNotOpen
	}
	if err := writeFull(ctx, t.line, tx); err != nil {
		return 0, fmt.Errorf("write frame: %w", err)
	}
	n, err := readFull(ctx, t.line, rx)
	if n > 0 && (err != nil || n < len(rx)) {
		glog.V(2).Infof("uart: discard partial frame (%d bytes)", n)
		t.line.ResetInputBuffer()
	}
	return n, err
}

// Close closes the line.
func (t *Transactor) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.line == nil {
		return nil
	}
	err := t.line.Close()
	t.line = nil
	return err
}

func readFull(ctx context.Context, r io.Reader, buf []byte) (int, error) {
	read := 0
	for read < len(buf) {
		if err := ctx.Err(); err != nil {
			return read, err
		}
		n, err := r.Read(buf[read:])
		if err != nil {
			return read, err
		}
		// serial reads return (0, nil) on timeout: keep waiting for
		// a frame to start, but a stall inside one ends it.
		if n == 0 && read > 0 {
			return read, nil
		}
		read += n
	}
	return read, nil
}

func writeFull(ctx context.Context, w io.Writer, buf []byte) error {
	written := 0
	for written < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := w.Write(buf[written:])
		if err != nil {
			return err
		}
		written += n
	}
	return nil
}
