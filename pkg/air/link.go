package air

import (
	"net"
	"strings"
	"sync/atomic"
)

// Addr is a 6-byte station address.
type Addr [6]byte

// Broadcast is the all-stations address.
var Broadcast = Addr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseAddr parses a station address like "24:6f:28:aa:bb:cc".
func ParseAddr(s string) (a Addr, err error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return a, err
	}
	if len(hw) != len(a) {
		return a, ErrInvalidAddr
	}
	copy(a[:], hw)
	return a, nil
}

// MustParseAddr is ParseAddr which panics on error.
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String implements Stringer.
func (a Addr) String() string {
	return net.HardwareAddr(a[:]).String()
}

// Token returns the address in a form usable as a topic level or path.
func (a Addr) Token() string {
	return strings.Replace(a.String(), ":", "", -1)
}

// Channel is the radio channel both peers must share.
type Channel uint8

// Receiver receives datagrams. It is invoked asynchronously on a driver
// goroutine and must not block for long.
type Receiver interface {
	ReceiveDatagram(from Addr, payload []byte)
}

// ReceiveFunc is the func form of Receiver.
type ReceiveFunc func(from Addr, payload []byte)

// ReceiveDatagram implements Receiver.
func (f ReceiveFunc) ReceiveDatagram(from Addr, payload []byte) {
	f(from, payload)
}

// Link is one end of a datagram relay to a statically configured peer.
type Link interface {
	// Send hands payload to the medium and returns immediately.
	// Only one send may be outstanding, otherwise ErrBusy is returned.
	Send(payload []byte) error
	// Listen installs the receive callback, replacing any previous one.
	Listen(r Receiver)
	// Close releases the link.
	Close() error
}

// SendGate admits at most one outstanding send.
type SendGate struct {
	busy atomic.Bool
}

// Acquire claims the gate or returns ErrBusy.
func (g *SendGate) Acquire() error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

// Release frees the gate once the medium is done with the send.
func (g *SendGate) Release() {
	g.busy.Store(false)
}

// Busy reports whether a send is outstanding.
func (g *SendGate) Busy() bool {
	return g.busy.Load()
}

// ReceiverSlot holds the installed Receiver.
type ReceiverSlot struct {
	v atomic.Value
}

type receiverBox struct{ r Receiver }

// Set installs r.
func (s *ReceiverSlot) Set(r Receiver) {
	s.v.Store(receiverBox{r})
}

// Deliver invokes the installed receiver, if any.
func (s *ReceiverSlot) Deliver(from Addr, payload []byte) bool {
	box, _ := s.v.Load().(receiverBox)
	if box.r == nil {
		return false
	}
	box.r.ReceiveDatagram(from, payload)
	return true
}
