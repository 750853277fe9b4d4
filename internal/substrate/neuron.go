package substrate

import (
	"synaptica/internal/record"
	"synaptica/internal/tables"
)

// Neuron is the live form of a KindNeuron record: one goroutine, a mailbox,
// and the accumulator state a barrier-synchronized think cycle needs.
type Neuron struct {
	handle *Handle

	activationID string
	activation   tables.ActivationFunc
	bias         *float64
	learning     record.LearningAlgorithm
	inbound      map[record.ConnectionId]record.InactiveConnection
	layer        int32

	barrierThreshold int
	outbound         []OutboundEdge
}

// NewNeuron starts a neuron's run loop and returns the handle other actors
// address it by. inbound is a private copy; the caller retains no alias
// into it. The barrier threshold starts at zero: the cortex constructor
// raises it one IncrementBarrierThreshold message at a time as it attaches
// each resolved inbound edge, so a node never begins firing before its
// in-degree is fully known.
func NewNeuron(id record.NodeId, layer int32, activationID string, activation tables.ActivationFunc, bias *float64, learning record.LearningAlgorithm, inbound map[record.ConnectionId]record.InactiveConnection) *Handle {
	n := &Neuron{
		handle:           newHandle(id, record.KindNeuron),
		activationID:     activationID,
		activation:       activation,
		bias:             bias,
		learning:         learning,
		inbound:          cloneInbound(inbound),
		layer:            layer,
		barrierThreshold: 0,
	}
	go n.run()
	return n.handle
}

func cloneInbound(in map[record.ConnectionId]record.InactiveConnection) map[record.ConnectionId]record.InactiveConnection {
	out := make(map[record.ConnectionId]record.InactiveConnection, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type pendingSynapse struct {
	from   record.NodeId
	value  float64
	weight float64
}

func (n *Neuron) run() {
	var sum float64
	var received int
	var pending []pendingSynapse

	for msg := range n.handle.mailbox {
		switch msg.kind {
		case msgAttachOutbound:
			n.outbound = append(n.outbound, msg.edge)
			msg.ackReply <- struct{}{}

		case msgIncrementBarrierThreshold:
			n.barrierThreshold++
			msg.ackReply <- struct{}{}

		case msgReceiveInput:
			sum += msg.value * msg.weight
			pending = append(pending, pendingSynapse{from: msg.from, value: msg.value, weight: msg.weight})
			received++
			if received == n.barrierThreshold {
				n.fire(sum, pending)
				sum, received, pending = 0, 0, nil
			}

		case msgKill:
			msg.killReply <- n.toRecord()
			close(n.handle.mailbox)
			return
		}
	}
}

func (n *Neuron) fire(sum float64, pending []pendingSynapse) {
	if n.bias != nil {
		sum += *n.bias
	}
	output := n.activation(sum)

	if n.learning.Kind == record.Hebbian {
		n.applyHebbian(pending, output)
	}

	for _, edge := range n.outbound {
		edge.To.ReceiveInput(n.handle.Id, output, edge.Weight)
	}
}

// applyHebbian updates every inbound connection whose source matches an
// arrived synapse: w += rate * input * output. The update lands on this
// node's own record copy, so it is visible once the cortex tears this
// network back down into records — the live sender's outbound weight is
// unaffected until the next construction, matching synaptica's generational
// record<->live cycle.
func (n *Neuron) applyHebbian(pending []pendingSynapse, output float64) {
	for _, syn := range pending {
		for cid, conn := range n.inbound {
			if conn.FromNode != syn.from {
				continue
			}
			conn.Weight += n.learning.Rate * syn.value * output
			n.inbound[cid] = conn
		}
	}
}

func (n *Neuron) toRecord() *record.NodeRecord {
	return &record.NodeRecord{
		NodeId:               n.handle.Id,
		Layer:                n.layer,
		Type:                 record.NeuronType(),
		Inbound:              cloneInbound(n.inbound),
		Bias:                 n.bias,
		Learning:             n.learning,
		ActivationFunctionID: &n.activationID,
	}
}
