package websocket

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/omnilink/pkg/air"
)

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLinkExchange(t *testing.T) {
	addrA := air.MustParseAddr("02:00:00:00:00:0a")
	addrB := air.MustParseAddr("02:00:00:00:00:0b")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := Serve(ln, "/air", addrB)
	defer server.Close()
	client := Dial("ws://"+ln.Addr().String()+"/air", "http://localhost/", addrA)
	defer client.Close()

	fromClient := make(chan []byte, 1)
	fromServer := make(chan []byte, 1)
	server.Listen(air.ReceiveFunc(func(from air.Addr, payload []byte) {
		require.Equal(t, addrB, from)
		fromClient <- payload
	}))
	client.Listen(air.ReceiveFunc(func(from air.Addr, payload []byte) {
		require.Equal(t, addrA, from)
		fromServer <- payload
	}))

	waitFor(t, func() bool { return client.Connected() && server.Connected() })

	require.NoError(t, client.Send([]byte{1, 2, 3}))
	select {
	case msg := <-fromClient:
		require.Equal(t, []byte{1, 2, 3}, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout")
	}

	waitFor(t, func() bool { return !server.gate.Busy() })
	require.NoError(t, server.Send([]byte{4, 5}))
	select {
	case msg := <-fromServer:
		require.Equal(t, []byte{4, 5}, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout")
	}
}

func TestSendWithoutPeerIsDropped(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := Serve(ln, "/air", air.Broadcast)
	require.NoError(t, server.Send([]byte{1}))
	require.False(t, server.gate.Busy())
	server.Close()
	require.Equal(t, air.ErrClosed, server.Send([]byte{1}))
}
