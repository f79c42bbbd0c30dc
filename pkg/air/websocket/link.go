// Package websocket carries air datagrams as binary WebSocket messages
// between two bridges, one dialing and the other listening.
package websocket

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/omnilink/pkg/air"
)

// DefaultRedialInterval is the delay before redialing a lost peer.
const DefaultRedialInterval = time.Second

// Link implements air.Link over a single WebSocket connection at a time.
type Link struct {
	peer     air.Addr
	gate     air.SendGate
	receiver air.ReceiverSlot

	connLock sync.Mutex
	conn     *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closer func() error
}

func newLink(peer air.Addr) *Link {
	l := &Link{peer: peer}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	return l
}

// Dial creates a Link which keeps dialing url until closed.
func Dial(wsURL, origin string, peer air.Addr) *Link {
	l := newLink(peer)
	l.wg.Add(1)
	go l.dialLoop(wsURL, origin)
	return l
}

// Serve creates a Link accepting the peer on a listener. A new
// connection replaces the current one.
func Serve(ln net.Listener, path string, peer air.Addr) *Link {
	l := newLink(peer)
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(l.serveConn))
	server := &http.Server{Handler: mux}
	l.closer = server.Close
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			glog.Errorf("air/websocket: serve: %v", err)
		}
	}()
	return l
}

// Connected reports whether a peer connection is established.
func (l *Link) Connected() bool {
	l.connLock.Lock()
	defer l.connLock.Unlock()
	return l.conn != nil
}

// Send implements air.Link. Without a connection the datagram is
// dropped, as a radio without a listening peer would.
func (l *Link) Send(payload []byte) error {
	if l.ctx.Err() != nil {
		return air.ErrClosed
	}
	if err := l.gate.Acquire(); err != nil {
		return err
	}
	l.connLock.Lock()
	conn := l.conn
	l.connLock.Unlock()
	if conn == nil {
		l.gate.Release()
		return nil
	}
	data := append([]byte(nil), payload...)
	go func() {
		defer l.gate.Release()
		if err := websocket.Message.Send(conn, data); err != nil {
			glog.V(2).Infof("air/websocket: send failed: %v", err)
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
	l.cancel()
	var err error
	if l.closer != nil {
		err = l.closer()
	}
	l.connLock.Lock()
	if l.conn != nil {
		l.conn.Close()
	}
	l.connLock.Unlock()
	l.wg.Wait()
	return err
}

func (l *Link) dialLoop(wsURL, origin string) {
	defer l.wg.Done()
	for l.ctx.Err() == nil {
		conn, err := websocket.Dial(wsURL, "", origin)
		if err != nil {
			glog.V(1).Infof("air/websocket: dial %s: %v", wsURL, err)
		} else {
			glog.Infof("air/websocket: connected to %s", wsURL)
			l.readLoop(conn)
		}
		select {
		case <-l.ctx.Done():
		case <-time.After(DefaultRedialInterval):
		}
	}
}

func (l *Link) serveConn(conn *websocket.Conn) {
	glog.Infof("air/websocket: peer connected from %s", conn.Request().RemoteAddr)
	l.readLoop(conn)
}

func (l *Link) readLoop(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	l.connLock.Lock()
	if prev := l.conn; prev != nil {
		prev.Close()
	}
	l.conn = conn
	l.connLock.Unlock()
	defer func() {
		l.connLock.Lock()
		if l.conn == conn {
			l.conn = nil
		}
		l.connLock.Unlock()
		conn.Close()
	}()
	for {
		var msg []byte
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			if l.ctx.Err() == nil {
				glog.V(1).Infof("air/websocket: receive: %v", err)
			}
			return
		}
		l.receiver.Deliver(l.peer, msg)
	}
}

// ws://host:port/path dials, ws://:port/path?listen=true listens.
func driver(u *url.URL, conf *air.Config) (air.Link, error) {
	_, peer, err := conf.Addrs()
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if q.Get("listen") == "true" {
		ln, err := net.Listen("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return Serve(ln, u.Path, peer), nil
	}
	origin := q.Get("origin")
	if origin == "" {
		origin = "http://localhost/"
	}
	u.RawQuery = ""
	return Dial(u.String(), origin, peer), nil
}

func init() {
	air.Register("ws", driver)
}
