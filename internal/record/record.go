// Package record defines the serialisable, static description of a
// neuroevolution network: the form records are created in, mutated in,
// and torn down into. It never imports the live substrate.
package record

// NodeId is a process-unique, monotonically allocated integer identifying
// one node. It persists unchanged across the record <-> live conversion.
type NodeId int64

// Kind tags the three node variants a NodeRecord can describe.
type Kind int

const (
	KindNeuron Kind = iota
	KindSensor
	KindActuator
)

func (k Kind) String() string {
	switch k {
	case KindNeuron:
		return "neuron"
	case KindSensor:
		return "sensor"
	case KindActuator:
		return "actuator"
	default:
		return "unknown"
	}
}

// NodeType tags which of Neuron, Sensor{outbound_count}, or Actuator a
// node is. OutboundCount is meaningful only when Kind == KindSensor; it
// exists so mutations can respect a sensor's maximum fan-out.
type NodeType struct {
	Kind          Kind
	OutboundCount uint32
}

// NeuronType builds the Neuron variant.
func NeuronType() NodeType { return NodeType{Kind: KindNeuron} }

// SensorType builds the Sensor variant with the given outbound fan-out count.
func SensorType(outboundCount uint32) NodeType {
	return NodeType{Kind: KindSensor, OutboundCount: outboundCount}
}

// ActuatorType builds the Actuator variant.
func ActuatorType() NodeType { return NodeType{Kind: KindActuator} }

// LearningKind selects the per-node in-flight weight-update rule.
type LearningKind int

const (
	NoLearning LearningKind = iota
	Hebbian
)

// LearningAlgorithm pairs a learning kind with its rate (meaningful only
// for Hebbian).
type LearningAlgorithm struct {
	Kind LearningKind
	Rate float64
}

// ConnectionId is the opaque key identifying one inbound connection within
// a NodeRecord's Inbound map. The spec allows any opaque scheme; synaptica
// uses UUIDs (see NewConnectionId in ids.go).
type ConnectionId string

// InactiveConnection is one inbound edge as recorded on its downstream
// node. ConnectionOrder is meaningful only when FromNode names a sensor:
// it is the positional index into that sensor's output vector feeding
// this edge.
type InactiveConnection struct {
	ConnectionOrder *uint32
	FromNode        NodeId
	Weight          float64
}

// NodeRecord is the serialisable description of one node.
type NodeRecord struct {
	NodeId   NodeId
	Layer    int32
	Type     NodeType
	Inbound  map[ConnectionId]InactiveConnection
	Bias     *float64
	Learning LearningAlgorithm

	ActivationFunctionID *string // Some iff Kind == KindNeuron
	SyncFunctionID        *string // Some iff Kind == KindSensor
	OutputHookID          *string // Some iff Kind == KindActuator
	MaximumVectorLength   *uint32 // meaningful only for sensors
}

// IsNeuron, IsSensor, IsActuator are small readability helpers used
// throughout the mutation engine and cortex constructor.
func (n *NodeRecord) IsNeuron() bool   { return n.Type.Kind == KindNeuron }
func (n *NodeRecord) IsSensor() bool   { return n.Type.Kind == KindSensor }
func (n *NodeRecord) IsActuator() bool { return n.Type.Kind == KindActuator }

// NodeRecords is the full static description of one network: the
// persistence-ready, caller-facing, mutator-facing form.
type NodeRecords map[NodeId]*NodeRecord

// Ids returns the node ids in ascending order. Several mutation kinds and
// the cortex constructor need a stable iteration order over an otherwise
// unordered map.
func (nr NodeRecords) Ids() []NodeId {
	ids := make([]NodeId, 0, len(nr))
	for id := range nr {
		ids = append(ids, id)
	}
	sortNodeIds(ids)
	return ids
}

func sortNodeIds(ids []NodeId) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// MaxId returns the highest NodeId present, or -1 if the set is empty.
func (nr NodeRecords) MaxId() NodeId {
	max := NodeId(-1)
	for id := range nr {
		if id > max {
			max = id
		}
	}
	return max
}

// Neurons, Sensors, Actuators filter by kind, in ascending id order.
func (nr NodeRecords) Neurons() []*NodeRecord   { return nr.byKind(KindNeuron) }
func (nr NodeRecords) Sensors() []*NodeRecord   { return nr.byKind(KindSensor) }
func (nr NodeRecords) Actuators() []*NodeRecord { return nr.byKind(KindActuator) }

func (nr NodeRecords) byKind(k Kind) []*NodeRecord {
	out := make([]*NodeRecord, 0, len(nr))
	for _, id := range nr.Ids() {
		if n := nr[id]; n.Type.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// InboundReferencesTo returns, for every node in the set, the inbound
// connections whose FromNode equals target, paired with the owning node
// and the connection id.
type InboundRef struct {
	OwnerId      NodeId
	ConnectionId ConnectionId
	Connection   InactiveConnection
}

func (nr NodeRecords) InboundReferencesTo(target NodeId) []InboundRef {
	var refs []InboundRef
	for _, id := range nr.Ids() {
		node := nr[id]
		for _, cid := range sortedConnectionIds(node.Inbound) {
			conn := node.Inbound[cid]
			if conn.FromNode == target {
				refs = append(refs, InboundRef{OwnerId: id, ConnectionId: cid, Connection: conn})
			}
		}
	}
	return refs
}

func sortedConnectionIds(inbound map[ConnectionId]InactiveConnection) []ConnectionId {
	ids := make([]ConnectionId, 0, len(inbound))
	for id := range inbound {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// SortedConnectionIds exposes the deterministic connection-id ordering
// used internally, for callers that need to iterate a node's inbound map
// reproducibly (tests, debug dumps).
func SortedConnectionIds(inbound map[ConnectionId]InactiveConnection) []ConnectionId {
	return sortedConnectionIds(inbound)
}
