package sh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/omnilink/pkg/air"
	"github.com/robotalks/omnilink/pkg/wire"
)

func sendRetry(t *testing.T, send func() error) {
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := send()
		if err != air.ErrBusy {
			require.NoError(t, err)
			return
		}
		require.True(t, time.Now().Before(deadline))
		time.Sleep(time.Millisecond)
	}
}

func TestAirConn(t *testing.T) {
	m := air.NewMedium()
	self, peer := air.MustParseAddr("02:00:00:00:00:0a"), air.MustParseAddr("02:00:00:00:00:0b")
	link, err := m.Join(1, self, peer)
	require.NoError(t, err)
	conn := NewAirConn(air.Config{Channel: 1, Self: self.String(), Peer: peer.String()}, link)
	defer conn.Close()

	remote, err := m.Join(1, peer, self)
	require.NoError(t, err)
	defer remote.Close()
	got := make(chan []byte, 4)
	remote.Listen(air.ReceiveFunc(func(from air.Addr, payload []byte) {
		got <- payload
	}))

	for i := 0; i < 2; i++ {
		p := wire.CommandPacket{VX: 0.5}
		sendRetry(t, func() error { return conn.SendCommand(&p) })
		require.Equal(t, uint32(i), p.Header.Counter())
		f, err := wire.FrameFrom(<-got)
		require.NoError(t, err)
		cmd, ok := wire.DecodeCommand(&f)
		require.True(t, ok)
		require.Equal(t, uint32(i), cmd.Timestamp)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	watched := make(chan wire.Frame, 1)
	go conn.Watch(ctx, func(f wire.Frame) {
		select {
		case watched <- f:
		default:
		}
	})
	tele := wire.TelemetryPacket{Flags: 1}
	tele.Stamp(3, 3)
	f := tele.Frame()
	deadline := time.Now().Add(2 * time.Second)
	for {
		sendRetry(t, func() error { return remote.Send(f[:]) })
		select {
		case w := <-watched:
			require.Equal(t, f, w)
			require.Equal(t, f, conn.Last())
			sendRetry(t, func() error { return remote.Send(f[:5]) })
			for {
				if _, rejected := conn.Counts(); rejected == 1 {
					return
				}
				require.True(t, time.Now().Before(deadline))
				time.Sleep(time.Millisecond)
			}
		case <-time.After(10 * time.Millisecond):
			require.True(t, time.Now().Before(deadline))
		}
	}
}
