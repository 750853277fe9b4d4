// Package substrate is the live message-passing graph: one goroutine per
// node, a single buffered channel as its mailbox, and a shared alphabet of
// message kinds every node kind understands a subset of.
package substrate

import "synaptica/internal/record"

type messageKind int

const (
	msgSync messageKind = iota
	msgReceiveInput
	msgIncrementBarrierThreshold
	msgAttachOutbound
	msgKill
)

// message is the single envelope type carried on every node's mailbox.
// Only the fields relevant to Kind are populated.
type message struct {
	kind messageKind

	// ReceiveInput fields.
	from   record.NodeId
	value  float64
	weight float64

	// AttachOutbound fields: the cortex constructor resolves edges after
	// every handle exists, then hands each upstream actor its own fanout
	// this way, since only the owning goroutine may mutate its state.
	edge OutboundEdge

	// IncrementBarrierThreshold / AttachOutbound reply.
	ackReply chan struct{}

	// Kill reply: the node's reconstructed static record.
	killReply chan *record.NodeRecord
}

// mailboxDepth bounds how many synapses/control messages a node will
// buffer before a send to its mailbox blocks. A generous constant avoids deadlocks from
// fan-out bursts without letting a stalled node grow unboundedly.
const mailboxDepth = 256
