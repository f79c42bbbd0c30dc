// Package wire provides the fixed-frame binary contract shared by
// the control nodes and the bridge nodes.
package wire

// Every exchange on the wired link and every datagram on the air is
// exactly FrameSize bytes. The first 4 bytes carry a header word packed
// big-endian: the top byte is the packet tag and the low 24 bits are a
// free-running counter. Payload fields are native-endian and only
// portable between nodes sharing the same processor family.
//
// Decoding only validates the tag. Counters are never checked here,
// the transport is most-recent-wins.
//
// Producer: remote node (commands), drive node (telemetry)
// Consumer: drive node (commands), remote node (telemetry)
