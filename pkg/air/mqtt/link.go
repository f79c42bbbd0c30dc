package mqtt

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/omnilink/pkg/air"
)

// ChannelTopic returns the topic level of a channel.
func ChannelTopic(ch air.Channel) string {
	return fmt.Sprintf("ch%d", ch)
}

// DatagramTopic returns the topic a datagram from src to dst is
// published on: ch<channel>/<dst>/<src>.
func DatagramTopic(ch air.Channel, dst, src air.Addr) string {
	return ChannelTopic(ch) + "/" + dst.Token() + "/" + src.Token()
}

// ParseDatagramTopic parses the topic (without prefix) of a datagram.
func ParseDatagramTopic(topic string) (ch air.Channel, dst, src air.Addr, err error) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || !strings.HasPrefix(items[0], "ch") {
		return ch, dst, src, fmt.Errorf("not a datagram topic: %q", topic)
	}
	var n uint8
	if _, err = fmt.Sscanf(items[0], "ch%d", &n); err != nil {
		return
	}
	ch = air.Channel(n)
	if dst, err = parseToken(items[1]); err != nil {
		return
	}
	src, err = parseToken(items[2])
	return
}

func parseToken(s string) (air.Addr, error) {
	if len(s) != 12 {
		return air.Addr{}, air.ErrInvalidAddr
	}
	parts := make([]string, 6)
	for i := range parts {
		parts[i] = s[i*2 : i*2+2]
	}
	return air.ParseAddr(strings.Join(parts, ":"))
}

// Link implements air.Link over a Queue.
type Link struct {
	queue      *Queue
	ownQueue   bool
	ch         air.Channel
	self, peer air.Addr
	gate       air.SendGate
	receiver   air.ReceiverSlot
	closeOnce  sync.Once
}

// NewLink creates a Link on a connected Queue and subscribes to
// datagrams addressed to self from peer.
func NewLink(q *Queue, ch air.Channel, self, peer air.Addr) *Link {
	l := &Link{queue: q, ch: ch, self: self, peer: peer}
	q.Sub(DatagramTopic(ch, self, peer), l.handleMsg)
	return l
}

// Send implements air.Link.
func (l *Link) Send(payload []byte) error {
	if err := l.gate.Acquire(); err != nil {
		return err
	}
	token := l.queue.Pub(DatagramTopic(l.ch, l.peer, l.self), payload)
	go func() {
		defer l.gate.Release()
		token.Wait()
		if err := token.Error(); err != nil {
			glog.V(2).Infof("air/mqtt: send failed: %v", err)
		}
	}()
	return nil
}

// Listen implements air.Link.
func (l *Link) Listen(r air.Receiver) {
	l.receiver.Set(r)
}

// Close implements air.Link.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		l.queue.Unsub(DatagramTopic(l.ch, l.self, l.peer))
		if l.ownQueue {
			l.queue.Close()
		}
	})
	return nil
}

func (l *Link) handleMsg(_ string, payload []byte) {
	l.receiver.Deliver(l.peer, payload)
}

func driver(u *url.URL, conf *air.Config) (air.Link, error) {
	self, peer, err := conf.Addrs()
	if err != nil {
		return nil, err
	}
	if u.Query().Get("client-id") == "" {
		q := u.Query()
		q.Set("client-id", "omni-"+self.Token())
		u.RawQuery = q.Encode()
	}
	q, err := NewQueueFromURL(u.String())
	if err != nil {
		return nil, err
	}
	if err = q.Connect(); err != nil {
		return nil, err
	}
	l := NewLink(q, conf.Channel, self, peer)
	l.ownQueue = true
	return l, nil
}

func init() {
	air.Register("mqtt", driver)
	air.Register("mqtts", driver)
}
