// Package spi provides the interrupt-driven full-duplex transfer engine
// used by control nodes, plus a clocked bus simulator.
package spi

// The engine drives a controller-mode synchronous serial port through
// its bounded TX/RX FIFOs. One frame of wire.FrameSize bytes is
// exchanged per transfer: Start fills the TX FIFO and arms the RX
// interrupt, HandleInterrupt drains RX and tops up TX until both
// directions have moved the full frame.
//
// Buffer ownership moves to the engine on Start and back to the caller
// once IsComplete reports true. Link enforces this by copying frames in
// and out of engine-owned buffers.
//
// There is no timeout. A peer which never clocks the frame stalls the
// engine forever.
