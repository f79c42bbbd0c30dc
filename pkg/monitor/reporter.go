package monitor

import (
	"sync/atomic"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/omnilink/pkg/relay"
	"github.com/robotalks/omnilink/pkg/wire"
)

// TopicRoot is the first topic level of reports.
const TopicRoot = "monitor"

// DefaultEvery publishes one of every 10 observed packets.
const DefaultEvery = 10

// Publisher is the publishing side of mqtt.Queue.
type Publisher interface {
	Pub(topic string, payload []byte) paho.Token
}

// Topic returns the topic of a report kind from node.
func Topic(node, kind string) string {
	return TopicRoot + "/" + node + "/" + kind
}

// Reporter publishes packets observed by a node. It implements
// assembler.CommandObserver, assembler.TelemetryObserver and
// relay.Recorder.
type Reporter struct {
	Node string
	Pub  Publisher
	// Every throttles packet reports, values below 2 publish all.
	Every uint64

	commands  atomic.Uint64
	telemetry atomic.Uint64
	published atomic.Uint64
	failures  atomic.Uint64
}

// NewReporter creates a Reporter.
func NewReporter(node string, pub Publisher) *Reporter {
	return &Reporter{Node: node, Pub: pub, Every: DefaultEvery}
}

// Published returns the number of reports published.
func (r *Reporter) Published() uint64 {
	return r.published.Load()
}

// ObserveCommand implements assembler.CommandObserver.
func (r *Reporter) ObserveCommand(p wire.CommandPacket) {
	if r.due(&r.commands) {
		r.Publish(CommandReportFrom(r.Node, p))
	}
}

// ObserveTelemetry implements assembler.TelemetryObserver.
func (r *Reporter) ObserveTelemetry(p wire.TelemetryPacket) {
	if r.due(&r.telemetry) {
		r.Publish(TelemetryReportFrom(r.Node, p))
	}
}

// Record implements relay.Recorder.
func (r *Reporter) Record(f wire.Frame) {
	switch wire.PeekTag(&f) {
	case wire.CommandTag:
		if p, ok := wire.DecodeCommand(&f); ok {
			r.ObserveCommand(p)
		}
	case wire.TelemetryTag:
		if p, ok := wire.DecodeTelemetry(&f); ok {
			r.ObserveTelemetry(p)
		}
	}
}

// ReportStatus publishes relay counters.
func (r *Reporter) ReportStatus(s relay.Stats) {
	r.Publish(LinkStatusFrom(r.Node, s))
}

// Publish publishes a report without waiting for delivery.
func (r *Reporter) Publish(report Report) {
	data, err := Encode(report)
	if err != nil {
		r.failures.Add(1)
		glog.Errorf("monitor: encode %s: %v", report.Kind(), err)
		return
	}
	r.Pub.Pub(Topic(r.Node, report.Kind()), data)
	r.published.Add(1)
}

func (r *Reporter) due(count *atomic.Uint64) bool {
	n := count.Add(1)
	return r.Every < 2 || n%r.Every == 1
}
