package monitor

import (
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/omnilink/pkg/air/mqtt"
	"github.com/robotalks/omnilink/pkg/relay"
	"github.com/robotalks/omnilink/pkg/wire"
)

// loopback delivers published payloads to matching subscriptions.
type loopback struct {
	subs map[string]mqtt.Handler
	pubs []string
}

func (l *loopback) Pub(topic string, payload []byte) paho.Token {
	l.pubs = append(l.pubs, topic)
	for filter, h := range l.subs {
		if mqtt.MatchTopic(topic, filter) {
			h(topic, payload)
		}
	}
	return nil
}

func (l *loopback) Sub(filter string, h mqtt.Handler) paho.Token {
	if l.subs == nil {
		l.subs = make(map[string]mqtt.Handler)
	}
	l.subs[filter] = h
	return nil
}

func TestEncodeDecode(t *testing.T) {
	cmd := wire.CommandPacket{VX: 0.5, VY: -0.25, Phi: 2, Buttons: 1}
	cmd.Stamp(42, 7)
	data, err := Encode(CommandReportFrom("remote", cmd))
	require.NoError(t, err)
	r, err := Decode(data)
	require.NoError(t, err)
	require.True(t, proto.Equal(&CommandReport{
		Node: "remote", Counter: 42, Vx: 0.5, Vy: -0.25, Phi: 2, Buttons: 1, Timestamp: 7,
	}, r))

	tele := wire.TelemetryPacket{Speeds: [4]float32{1, 2, 3, 4}, Samples: [4]uint16{5, 6, 7, 4095}}
	tele.Stamp(3, 9)
	data, err = Encode(TelemetryReportFrom("drive", tele))
	require.NoError(t, err)
	r, err = Decode(data)
	require.NoError(t, err)
	tr, ok := r.(*TelemetryReport)
	require.True(t, ok)
	require.Equal(t, []float32{1, 2, 3, 4}, tr.Speeds)
	require.Equal(t, []uint32{5, 6, 7, 4095}, tr.Samples)
	require.Equal(t, uint32(3), tr.Counter)

	data, err = proto.Marshal(&Typed{TypeId: 0xdead})
	require.NoError(t, err)
	_, err = Decode(data)
	require.IsType(t, &UnknownTypeError{}, err)
}

func TestReporterWatch(t *testing.T) {
	lb := &loopback{}
	type seen struct {
		node string
		kind string
	}
	var got []seen
	Watch(lb, "", func(node string, r Report) {
		got = append(got, seen{node, r.Kind()})
	})

	rep := NewReporter("bridge", lb)
	rep.Every = 2
	for i := uint32(0); i < 4; i++ {
		cmd := wire.CommandPacket{}
		cmd.Stamp(i, i)
		rep.Record(cmd.Frame())
	}
	tele := wire.TelemetryPacket{}
	tele.Stamp(1, 1)
	rep.Record(tele.Frame())
	rep.Record(wire.Frame{})
	rep.ReportStatus(relay.Stats{Transactions: 10})

	require.Equal(t, []string{
		"monitor/bridge/command",
		"monitor/bridge/command",
		"monitor/bridge/telemetry",
		"monitor/bridge/status",
	}, lb.pubs)
	require.Equal(t, []seen{
		{"bridge", "command"},
		{"bridge", "command"},
		{"bridge", "telemetry"},
		{"bridge", "status"},
	}, got)
	require.Equal(t, uint64(4), rep.Published())
}

func TestWatchNode(t *testing.T) {
	lb := &loopback{}
	var nodes []string
	Watch(lb, "drive", func(node string, r Report) { nodes = append(nodes, node) })
	NewReporter("remote", lb).ReportStatus(relay.Stats{})
	NewReporter("drive", lb).ReportStatus(relay.Stats{})
	lb.Pub(Topic("drive", "status"), []byte{0xff})
	require.Equal(t, []string{"drive"}, nodes)
}
