package sh

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/robotalks/omnilink/pkg/air"
	"github.com/robotalks/omnilink/pkg/wire"
)

// AirConn is the shell's own station on an air link. It sends command
// frames to the peer and fans received frames out to watchers.
type AirConn struct {
	Config air.Config
	Link   air.Link

	counter  atomic.Uint32
	received atomic.Uint64
	rejected atomic.Uint64

	lock     sync.Mutex
	last     wire.Frame
	watchers map[chan wire.Frame]struct{}
}

// Dial creates an AirConn from conf.
func Dial(conf air.Config) (*AirConn, error) {
	link, err := conf.NewLink()
	if err != nil {
		return nil, err
	}
	return NewAirConn(conf, link), nil
}

// NewAirConn creates an AirConn over an existing link.
func NewAirConn(conf air.Config, link air.Link) *AirConn {
	c := &AirConn{Config: conf, Link: link, watchers: make(map[chan wire.Frame]struct{})}
	link.Listen(c)
	return c
}

// Close implements io.Closer.
func (c *AirConn) Close() error {
	c.Link.Listen(nil)
	return c.Link.Close()
}

// Name is used in the prompt.
func (c *AirConn) Name() string {
	return c.Config.Peer
}

// ReceiveDatagram implements air.Receiver.
func (c *AirConn) ReceiveDatagram(from air.Addr, payload []byte) {
	f, err := wire.FrameFrom(payload)
	if err != nil {
		c.rejected.Add(1)
		return
	}
	c.received.Add(1)
	c.lock.Lock()
	c.last = f
	for ch := range c.watchers {
		select {
		case ch <- f:
		default:
		}
	}
	c.lock.Unlock()
}

// Last returns the last received frame.
func (c *AirConn) Last() wire.Frame {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.last
}

// Counts returns the numbers of received and rejected datagrams.
func (c *AirConn) Counts() (received, rejected uint64) {
	return c.received.Load(), c.rejected.Load()
}

// SendCommand stamps p with the next counter and sends it. The counter
// advances only when the link accepts the frame.
func (c *AirConn) SendCommand(p *wire.CommandPacket) error {
	n := c.counter.Load()
	p.Stamp(n, n)
	f := p.Frame()
	if err := c.Link.Send(f[:]); err != nil {
		return err
	}
	c.counter.Add(1)
	return nil
}

// Watch delivers received frames until ctx is done.
func (c *AirConn) Watch(ctx context.Context, fn func(wire.Frame)) {
	ch := make(chan wire.Frame, 16)
	c.lock.Lock()
	c.watchers[ch] = struct{}{}
	c.lock.Unlock()
	defer func() {
		c.lock.Lock()
		delete(c.watchers, ch)
		c.lock.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-ch:
			fn(f)
		}
	}
}
