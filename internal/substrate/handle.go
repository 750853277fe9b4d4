package substrate

import "synaptica/internal/record"

// Handle is the opaque reference other actors and the cortex hold onto a
// live node. It wraps the node's mailbox; nothing outside this package
// reaches into a node's internal state directly, so cyclic topology is
// safe to build.
type Handle struct {
	Id      record.NodeId
	Kind    record.Kind
	mailbox chan message
}

func newHandle(id record.NodeId, kind record.Kind) *Handle {
	return &Handle{Id: id, Kind: kind, mailbox: make(chan message, mailboxDepth)}
}

// OutboundEdge is a resolved edge from one upstream actor to a downstream
// handle, carrying the weight stored on the downstream's inbound record
// for this source.
type OutboundEdge struct {
	To     *Handle
	Weight float64
}

// Sync instructs a sensor to read its input source and emit one synapse
// per outbound edge.
func (h *Handle) Sync() {
	h.mailbox <- message{kind: msgSync}
}

// ReceiveInput delivers one arrived synapse.
func (h *Handle) ReceiveInput(from record.NodeId, value, weight float64) {
	h.mailbox <- message{kind: msgReceiveInput, from: from, value: value, weight: weight}
}

// IncrementBarrierThreshold increments the node's expected inbound count
// by one and blocks until the node acknowledges, so construction can
// finish wiring every edge before any node starts accumulating input.
func (h *Handle) IncrementBarrierThreshold() {
	reply := make(chan struct{})
	h.mailbox <- message{kind: msgIncrementBarrierThreshold, ackReply: reply}
	<-reply
}

// AttachOutbound gives an upstream actor one more resolved fanout edge. It
// blocks until the actor has appended it, so the cortex constructor can
// attach every edge before any Sync is sent.
func (h *Handle) AttachOutbound(edge OutboundEdge) {
	reply := make(chan struct{})
	h.mailbox <- message{kind: msgAttachOutbound, edge: edge, ackReply: reply}
	<-reply
}

// Kill asks the node to drain, reconstruct its static record, terminate,
// and hand the record back.
func (h *Handle) Kill() *record.NodeRecord {
	reply := make(chan *record.NodeRecord)
	h.mailbox <- message{kind: msgKill, killReply: reply}
	return <-reply
}
