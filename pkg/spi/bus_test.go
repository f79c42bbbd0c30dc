package spi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/omnilink/pkg/wire"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timeout")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBusExchange(t *testing.T) {
	bus := NewBus(4)
	e := NewEngine(bus)
	bus.Attach(e)

	peerTx, peerRx := testFrame(0x90), make([]byte, wire.FrameSize)
	result := make(chan int, 1)
	go func() {
		n, err := bus.Transact(context.Background(), peerTx[:], peerRx)
		require.NoError(t, err)
		result <- n
	}()
	waitFor(t, time.Second, bus.Pending)

	tx, rx := testFrame(1), wire.Frame{}
	require.NoError(t, e.TryStart(&tx, &rx))
	for steps := 0; !e.IsComplete(); steps++ {
		require.True(t, steps < 10000)
		bus.Step()
	}
	require.Equal(t, wire.FrameSize, <-result)
	require.Equal(t, peerTx, rx)
	require.Equal(t, tx[:], peerRx)

	stats := bus.Stats()
	require.Equal(t, uint64(wire.FrameSize), stats.Words)
	require.Equal(t, uint64(1), stats.Frames)
	require.Zero(t, stats.LostFrames)
}

func TestBusFrameWithoutPeripheralIsLost(t *testing.T) {
	bus := NewBus(8)
	e := NewEngine(bus)
	bus.Attach(e)

	tx, rx := testFrame(1), testFrame(7)
	require.NoError(t, e.TryStart(&tx, &rx))
	for !e.IsComplete() {
		bus.Step()
	}
	require.Equal(t, wire.Frame{}, rx)
	require.Equal(t, uint64(1), bus.Stats().LostFrames)
}

func TestBusRun(t *testing.T) {
	bus := NewBus(4)
	e := NewEngine(bus)
	bus.Attach(e)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx, time.Millisecond)

	peerTx := testFrame(0x50)
	for i := 0; i < 3; i++ {
		peerRx := make([]byte, wire.FrameSize)
		done := make(chan struct{})
		go func() {
			defer close(done)
			bus.Transact(ctx, peerTx[:], peerRx)
		}()
		waitFor(t, time.Second, bus.Pending)
		tx, rx := testFrame(byte(i)), wire.Frame{}
		require.NoError(t, e.TryStart(&tx, &rx))
		waitCtx, waitCancel := context.WithTimeout(ctx, time.Second)
		require.NoError(t, e.Wait(waitCtx))
		waitCancel()
		<-done
		require.Equal(t, peerTx, rx)
		require.Equal(t, tx[:], peerRx)
	}
}

func TestBusTransactCancel(t *testing.T) {
	bus := NewBus(4)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		waitFor(t, time.Second, bus.Pending)
		cancel()
	}()
	_, err := bus.Transact(ctx, make([]byte, wire.FrameSize), make([]byte, wire.FrameSize))
	require.Equal(t, context.Canceled, err)
	require.False(t, bus.Pending())
}

func TestBusClose(t *testing.T) {
	bus := NewBus(4)
	go func() {
		waitFor(t, time.Second, bus.Pending)
		bus.Close()
	}()
	_, err := bus.Transact(context.Background(), nil, nil)
	require.Equal(t, ErrBusClosed, err)
	_, err = bus.Transact(context.Background(), nil, nil)
	require.Equal(t, ErrBusClosed, err)
}
