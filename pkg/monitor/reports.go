// Package monitor publishes what the nodes see on the link as protobuf
// reports over MQTT, and decodes them for watchers.
package monitor

import (
	"github.com/golang/protobuf/proto"
)

// Typed is the envelope of a report on the wire.
type Typed struct {
	TypeId  uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Message []byte `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *Typed) Reset()         { *m = Typed{} }
func (m *Typed) String() string { return proto.CompactTextString(m) }
func (*Typed) ProtoMessage()    {}

// CommandReport is a command packet seen by a node.
type CommandReport struct {
	Node      string  `protobuf:"bytes,1,opt,name=node,proto3" json:"node,omitempty"`
	Counter   uint32  `protobuf:"varint,2,opt,name=counter,proto3" json:"counter,omitempty"`
	Vx        float32 `protobuf:"fixed32,3,opt,name=vx,proto3" json:"vx,omitempty"`
	Vy        float32 `protobuf:"fixed32,4,opt,name=vy,proto3" json:"vy,omitempty"`
	Phi       float32 `protobuf:"fixed32,5,opt,name=phi,proto3" json:"phi,omitempty"`
	Buttons   uint32  `protobuf:"varint,6,opt,name=buttons,proto3" json:"buttons,omitempty"`
	Timestamp uint32  `protobuf:"varint,7,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

func (m *CommandReport) Reset()         { *m = CommandReport{} }
func (m *CommandReport) String() string { return proto.CompactTextString(m) }
func (*CommandReport) ProtoMessage()    {}

// TelemetryReport is a telemetry packet seen by a node.
type TelemetryReport struct {
	Node      string    `protobuf:"bytes,1,opt,name=node,proto3" json:"node,omitempty"`
	Counter   uint32    `protobuf:"varint,2,opt,name=counter,proto3" json:"counter,omitempty"`
	Speeds    []float32 `protobuf:"fixed32,3,rep,packed,name=speeds,proto3" json:"speeds,omitempty"`
	Samples   []uint32  `protobuf:"varint,4,rep,packed,name=samples,proto3" json:"samples,omitempty"`
	Flags     uint32    `protobuf:"varint,5,opt,name=flags,proto3" json:"flags,omitempty"`
	Timestamp uint32    `protobuf:"varint,6,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

func (m *TelemetryReport) Reset()         { *m = TelemetryReport{} }
func (m *TelemetryReport) String() string { return proto.CompactTextString(m) }
func (*TelemetryReport) ProtoMessage()    {}

// LinkStatus carries the counters of a relay.
type LinkStatus struct {
	Node         string `protobuf:"bytes,1,opt,name=node,proto3" json:"node,omitempty"`
	Transactions uint64 `protobuf:"varint,2,opt,name=transactions,proto3" json:"transactions,omitempty"`
	Short        uint64 `protobuf:"varint,3,opt,name=short,proto3" json:"short,omitempty"`
	WireErrors   uint64 `protobuf:"varint,4,opt,name=wire_errors,json=wireErrors,proto3" json:"wire_errors,omitempty"`
	Forwarded    uint64 `protobuf:"varint,5,opt,name=forwarded,proto3" json:"forwarded,omitempty"`
	SendFailures uint64 `protobuf:"varint,6,opt,name=send_failures,json=sendFailures,proto3" json:"send_failures,omitempty"`
	QueueDrops   uint64 `protobuf:"varint,7,opt,name=queue_drops,json=queueDrops,proto3" json:"queue_drops,omitempty"`
	Received     uint64 `protobuf:"varint,8,opt,name=received,proto3" json:"received,omitempty"`
	Rejected     uint64 `protobuf:"varint,9,opt,name=rejected,proto3" json:"rejected,omitempty"`
}

func (m *LinkStatus) Reset()         { *m = LinkStatus{} }
func (m *LinkStatus) String() string { return proto.CompactTextString(m) }
func (*LinkStatus) ProtoMessage()    {}
