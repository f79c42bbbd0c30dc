package monitor

import (
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/omnilink/pkg/relay"
	"github.com/robotalks/omnilink/pkg/wire"
)

// Report type IDs.
const (
	CommandReportTypeID   uint32 = 0x00010001
	TelemetryReportTypeID uint32 = 0x00010002
	LinkStatusTypeID      uint32 = 0x00010003
)

// Report is a message that can be published.
type Report interface {
	proto.Message
	TypeID() uint32
	// Kind names the last topic level.
	Kind() string
}

// TypeID implements Report.
func (m *CommandReport) TypeID() uint32 { return CommandReportTypeID }

// Kind implements Report.
func (m *CommandReport) Kind() string { return "command" }

// TypeID implements Report.
func (m *TelemetryReport) TypeID() uint32 { return TelemetryReportTypeID }

// Kind implements Report.
func (m *TelemetryReport) Kind() string { return "telemetry" }

// TypeID implements Report.
func (m *LinkStatus) TypeID() uint32 { return LinkStatusTypeID }

// Kind implements Report.
func (m *LinkStatus) Kind() string { return "status" }

// ReportTypes maps type IDs to report factories.
var ReportTypes = map[uint32]func() Report{
	CommandReportTypeID:   func() Report { return &CommandReport{} },
	TelemetryReportTypeID: func() Report { return &TelemetryReport{} },
	LinkStatusTypeID:      func() Report { return &LinkStatus{} },
}

// UnknownTypeError indicates an unknown type id.
type UnknownTypeError struct {
	TypeID uint32
}

// Error implements error.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

// Encode encodes a report with its envelope.
func Encode(r Report) ([]byte, error) {
	data, err := proto.Marshal(r)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(&Typed{TypeId: r.TypeID(), Message: data})
}

// Decode decodes an enveloped report.
func Decode(data []byte) (Report, error) {
	var typed Typed
	if err := proto.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	factory, ok := ReportTypes[typed.TypeId]
	if !ok {
		return nil, &UnknownTypeError{TypeID: typed.TypeId}
	}
	r := factory()
	if err := proto.Unmarshal(typed.Message, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CommandReportFrom converts a command packet.
func CommandReportFrom(node string, p wire.CommandPacket) *CommandReport {
	return &CommandReport{
		Node:      node,
		Counter:   p.Header.Counter(),
		Vx:        p.VX,
		Vy:        p.VY,
		Phi:       p.Phi,
		Buttons:   p.Buttons,
		Timestamp: p.Timestamp,
	}
}

// TelemetryReportFrom converts a telemetry packet.
func TelemetryReportFrom(node string, p wire.TelemetryPacket) *TelemetryReport {
	r := &TelemetryReport{
		Node:      node,
		Counter:   p.Header.Counter(),
		Speeds:    append([]float32(nil), p.Speeds[:]...),
		Samples:   make([]uint32, len(p.Samples)),
		Flags:     p.Flags,
		Timestamp: p.Timestamp,
	}
	for i, s := range p.Samples {
		r.Samples[i] = uint32(s)
	}
	return r
}

// LinkStatusFrom converts relay counters.
func LinkStatusFrom(node string, s relay.Stats) *LinkStatus {
	return &LinkStatus{
		Node:         node,
		Transactions: s.Transactions,
		Short:        s.Short,
		WireErrors:   s.WireErrors,
		Forwarded:    s.Forwarded,
		SendFailures: s.SendFailures,
		QueueDrops:   s.QueueDrops,
		Received:     s.Received,
		Rejected:     s.Rejected,
	}
}
