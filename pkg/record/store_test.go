package record

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/omnilink/pkg/wire"
)

func openTemp(t *testing.T) *Store {
	s, err := Open(filepath.Join(t.TempDir(), "uplink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func telemetry(counter uint32) wire.Frame {
	p := wire.TelemetryPacket{Speeds: [4]float32{float32(counter)}}
	p.Stamp(counter, counter)
	return p.Frame()
}

func TestStoreSaveRecent(t *testing.T) {
	s := openTemp(t)
	entries, err := s.Recent(5)
	require.NoError(t, err)
	require.Empty(t, entries)

	for i := uint32(1); i <= 4; i++ {
		require.NoError(t, s.Save(telemetry(i)))
	}
	cmd := wire.CommandPacket{VX: 1}
	cmd.Stamp(9, 9)
	require.NoError(t, s.Save(cmd.Frame()))

	entries, err = s.Recent(3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, uint32(9), entries[0].Counter)
	require.Equal(t, uint32(4), entries[1].Counter)
	f, err := entries[1].Frame()
	require.NoError(t, err)
	require.Equal(t, telemetry(4), f)

	entries, err = s.ByTag(wire.TelemetryTag, 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for _, e := range entries {
		require.Equal(t, wire.TelemetryTag, e.Tag)
	}

	n, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, 5, n)
}

func TestStoreRun(t *testing.T) {
	s := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	for i := uint32(0); i < 10; i++ {
		s.Record(telemetry(i))
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if saved, _ := s.Stats(); saved == 10 {
			break
		}
		require.True(t, time.Now().Before(deadline))
		time.Sleep(time.Millisecond)
	}
	cancel()
	require.Equal(t, context.Canceled, <-done)
	n, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, 10, n)
}

func TestStoreRecordDrops(t *testing.T) {
	s := openTemp(t)
	for i := 0; i < DefaultBacklog+3; i++ {
		s.Record(telemetry(uint32(i)))
	}
	_, dropped := s.Stats()
	require.Equal(t, uint64(3), dropped)
	// Run flushes what is queued when cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.Run(ctx))
	n, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, DefaultBacklog, n)
}
