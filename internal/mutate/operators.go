package mutate

import (
	"math"
	"math/rand"

	"synaptica/internal/record"
)

func mutateActivationFunction(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	target, ok := randomNeuron(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}
	id, ok := randomId(rng, props.ActivationIds)
	if !ok {
		return nil, ErrPreconditionUnmet
	}

	out := nr.Clone()
	out[target.NodeId].ActivationFunctionID = &id
	return out, nil
}

func addBias(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	target, ok := randomNeuron(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}
	if target.Bias != nil && *target.Bias != 0 {
		return nil, ErrPreconditionUnmet
	}

	out := nr.Clone()
	bias := rng.Float64()
	out[target.NodeId].Bias = &bias
	return out, nil
}

func removeBias(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	target, ok := randomNeuron(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}
	if target.Bias == nil || *target.Bias <= 0 {
		return nil, ErrPreconditionUnmet
	}

	out := nr.Clone()
	out[target.NodeId].Bias = nil
	return out, nil
}

func mutateWeights(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	target, ok := randomNeuron(rng, nr)
	if !ok || len(target.Inbound) == 0 {
		return nil, ErrPreconditionUnmet
	}

	out := nr.Clone()
	node := out[target.NodeId]
	d := float64(len(node.Inbound))
	p := 1 / math.Sqrt(d)
	for cid, conn := range node.Inbound {
		if rng.Float64() < p {
			conn.Weight = uniformSignedHalfPi(rng)
			node.Inbound[cid] = conn
		}
	}
	return out, nil
}

func resetWeights(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	target, ok := randomNeuron(rng, nr)
	if !ok || len(target.Inbound) == 0 {
		return nil, ErrPreconditionUnmet
	}

	out := nr.Clone()
	node := out[target.NodeId]
	for cid, conn := range node.Inbound {
		conn.Weight = uniformSignedHalfPi(rng)
		node.Inbound[cid] = conn
	}
	return out, nil
}

// addInboundConnection backs both AddInboundConnection and
// AddOutboundConnection: it picks a random neuron as the owner and a random
// non-actuator node as the source, with no reachability or duplicate-edge
// check, and the effect is identical regardless of which endpoint is
// nominally the draw target, so the two kinds are kept as separate
// probability slots over one implementation.
func addInboundConnection(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	f, ok := randomNeuron(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}
	candidates := nonActuatorNodes(nr)
	if len(candidates) == 0 {
		return nil, ErrPreconditionUnmet
	}
	t := candidates[rng.Intn(len(candidates))]

	out := nr.Clone()
	conn := record.InactiveConnection{FromNode: t.NodeId, Weight: 1.0}
	if t.IsSensor() {
		order := t.Type.OutboundCount
		conn.ConnectionOrder = &order
	}
	out[f.NodeId].Inbound[record.NewConnectionId()] = conn
	if t.IsSensor() {
		renumberSensorOrder(out, t.NodeId)
	}
	return out, nil
}

// nonActuatorNodes lists nodes eligible as a connection source: anything
// but an actuator (record.Validate forbids actuators as from_node).
func nonActuatorNodes(nr record.NodeRecords) []*record.NodeRecord {
	var out []*record.NodeRecord
	for _, id := range nr.Ids() {
		if n := nr[id]; !n.IsActuator() {
			out = append(out, n)
		}
	}
	return out
}

func addNeuron(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	layerSource, ok := randomNeuron(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}
	activationID, ok := randomId(rng, props.ActivationIds)
	if !ok {
		return nil, ErrPreconditionUnmet
	}
	f, ok := randomNonActuator(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}
	t, ok := randomNonSensor(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}

	out := nr.Clone()
	newID := out.MaxId() + 1
	out[newID] = &record.NodeRecord{
		NodeId:               newID,
		Layer:                layerSource.Layer,
		Type:                 record.NeuronType(),
		Inbound:              map[record.ConnectionId]record.InactiveConnection{},
		ActivationFunctionID: &activationID,
		Learning:             props.Learning,
	}

	fConn := record.InactiveConnection{FromNode: f.NodeId, Weight: 1.0}
	if f.IsSensor() {
		order := f.Type.OutboundCount
		fConn.ConnectionOrder = &order
	}
	out[newID].Inbound[record.NewConnectionId()] = fConn
	if f.IsSensor() {
		renumberSensorOrder(out, f.NodeId)
	}

	out[t.NodeId].Inbound[record.NewConnectionId()] = record.InactiveConnection{FromNode: newID, Weight: 1.0}
	return out, nil
}

// addNeuronSplice backs both AddNeuronOutSplice and AddNeuronInSplice: spec
// §9 open question (b) notes they share one implementation under two
// probability slots.
func addNeuronSplice(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	var candidates []*record.NodeRecord
	for _, id := range nr.Ids() {
		if n := nr[id]; !n.IsSensor() && len(n.Inbound) > 0 {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrPreconditionUnmet
	}
	t := candidates[rng.Intn(len(candidates))]

	cids := record.SortedConnectionIds(t.Inbound)
	chosenCID := cids[rng.Intn(len(cids))]
	oldConn := t.Inbound[chosenCID]
	f := nr[oldConn.FromNode]

	activationID, ok := randomId(rng, props.ActivationIds)
	if !ok {
		return nil, ErrPreconditionUnmet
	}

	var newLayer int32
	switch {
	case t.IsActuator() && f.IsNeuron():
		newLayer = f.Layer + 1
	case t.IsActuator() && f.IsSensor():
		return nil, ErrInvariantViolation
	case t.IsNeuron() && f.IsNeuron():
		newLayer = (f.Layer + t.Layer) / 2
	case t.IsNeuron() && f.IsSensor():
		newLayer = (t.Layer + 1) / 2
	default:
		return nil, ErrInvariantViolation
	}

	out := nr.Clone()
	newID := out.MaxId() + 1
	out[newID] = &record.NodeRecord{
		NodeId:               newID,
		Layer:                newLayer,
		Type:                 record.NeuronType(),
		Inbound:              map[record.ConnectionId]record.InactiveConnection{},
		ActivationFunctionID: &activationID,
		Learning:             props.Learning,
	}

	// Redirect T's existing edge to come from N instead of F.
	out[t.NodeId].Inbound[chosenCID] = record.InactiveConnection{FromNode: newID, Weight: oldConn.Weight}

	// Give N a fresh inbound from F, carrying the original weight.
	nConn := record.InactiveConnection{FromNode: f.NodeId, Weight: oldConn.Weight}
	if f.IsSensor() {
		order := f.Type.OutboundCount
		nConn.ConnectionOrder = &order
	}
	out[newID].Inbound[record.NewConnectionId()] = nConn

	if f.IsSensor() {
		renumberSensorOrder(out, f.NodeId)
	}
	return out, nil
}

func addSensor(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	used := map[string]bool{}
	for _, s := range nr.Sensors() {
		if s.SyncFunctionID != nil {
			used[*s.SyncFunctionID] = true
		}
	}
	var available []string
	for _, id := range props.SyncIds {
		if !used[id] {
			available = append(available, id)
		}
	}
	if len(available) == 0 {
		return nil, ErrPreconditionUnmet
	}
	target, ok := randomNeuron(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}

	out := nr.Clone()
	newID := out.MaxId() + 1
	syncID := available[rng.Intn(len(available))]
	out[newID] = &record.NodeRecord{
		NodeId:              newID,
		Layer:                0,
		Type:                 record.SensorType(1),
		Inbound:              map[record.ConnectionId]record.InactiveConnection{},
		SyncFunctionID:       &syncID,
		MaximumVectorLength:  record.Uint32Ptr(1),
	}

	order := uint32(0)
	out[target.NodeId].Inbound[record.NewConnectionId()] = record.InactiveConnection{ConnectionOrder: &order, FromNode: newID, Weight: 1.0}
	return out, nil
}

func addActuator(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	used := map[string]bool{}
	for _, a := range nr.Actuators() {
		if a.OutputHookID != nil {
			used[*a.OutputHookID] = true
		}
	}
	var available []string
	for _, id := range props.OutputHookIds {
		if !used[id] {
			available = append(available, id)
		}
	}
	if len(available) == 0 {
		return nil, ErrPreconditionUnmet
	}
	source, ok := randomNeuron(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}

	out := nr.Clone()
	newID := out.MaxId() + 1
	hookID := available[rng.Intn(len(available))]
	layer := maxLayer(out) + 1
	out[newID] = &record.NodeRecord{
		NodeId:       newID,
		Layer:        layer,
		Type:         record.ActuatorType(),
		Inbound:      map[record.ConnectionId]record.InactiveConnection{record.NewConnectionId(): {FromNode: source.NodeId, Weight: 1.0}},
		OutputHookID: &hookID,
	}
	return out, nil
}

func maxLayer(nr record.NodeRecords) int32 {
	var max int32
	for _, id := range nr.Ids() {
		if n := nr[id]; n.Layer > max {
			max = n.Layer
		}
	}
	return max
}

func addSensorLink(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	var eligible []*record.NodeRecord
	for _, s := range nr.Sensors() {
		if !sensorOutboundCapReached(s, s.Type.OutboundCount) {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrPreconditionUnmet
	}
	s := eligible[rng.Intn(len(eligible))]
	target, ok := randomNeuron(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}

	out := nr.Clone()
	order := s.Type.OutboundCount
	out[target.NodeId].Inbound[record.NewConnectionId()] = record.InactiveConnection{ConnectionOrder: &order, FromNode: s.NodeId, Weight: 1.0}
	out[s.NodeId].Type = record.SensorType(s.Type.OutboundCount + 1)
	return out, nil
}

func addActuatorLink(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	f, ok := randomNeuron(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}
	a, ok := randomActuator(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}

	out := nr.Clone()
	out[a.NodeId].Inbound[record.NewConnectionId()] = record.InactiveConnection{FromNode: f.NodeId, Weight: 1.0}
	return out, nil
}

func removeSensorLink(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	var candidates []*record.NodeRecord
	for _, s := range nr.Sensors() {
		if s.Type.OutboundCount > 1 {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrPreconditionUnmet
	}
	s := candidates[rng.Intn(len(candidates))]

	refs := nr.InboundReferencesTo(s.NodeId)
	var eligible []record.InboundRef
	for _, ref := range refs {
		if len(nr[ref.OwnerId].Inbound) > 1 {
			eligible = append(eligible, ref)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrPreconditionUnmet
	}
	chosen := eligible[rng.Intn(len(eligible))]

	out := nr.Clone()
	delete(out[chosen.OwnerId].Inbound, chosen.ConnectionId)
	renumberSensorOrder(out, s.NodeId)
	return out, nil
}

func removeActuatorLink(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	var candidates []*record.NodeRecord
	for _, a := range nr.Actuators() {
		if len(a.Inbound) > 1 {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrPreconditionUnmet
	}
	a := candidates[rng.Intn(len(candidates))]
	cids := record.SortedConnectionIds(a.Inbound)
	chosen := cids[rng.Intn(len(cids))]

	out := nr.Clone()
	delete(out[a.NodeId].Inbound, chosen)
	return out, nil
}

// removeInboundConnection backs both RemoveInboundConnection and
// RemoveOutboundConnection, for the same reason addInboundConnection
// backs both of the Add- kinds: removing an edge has an identical effect
// regardless of which endpoint is nominally named.
func removeInboundConnection(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	type candidate struct {
		neuron *record.NodeRecord
		nonSensorCids []record.ConnectionId
	}
	var candidates []candidate
	for _, n := range nr.Neurons() {
		if len(n.Inbound) <= 1 {
			continue
		}
		var nonSensor []record.ConnectionId
		for _, cid := range record.SortedConnectionIds(n.Inbound) {
			from := nr[n.Inbound[cid].FromNode]
			if !from.IsSensor() {
				nonSensor = append(nonSensor, cid)
			}
		}
		if len(nonSensor) > 0 {
			candidates = append(candidates, candidate{n, nonSensor})
		}
	}
	if len(candidates) == 0 {
		return nil, ErrPreconditionUnmet
	}
	c := candidates[rng.Intn(len(candidates))]
	chosen := c.nonSensorCids[rng.Intn(len(c.nonSensorCids))]

	if len(c.neuron.Inbound)-1 <= 1 {
		return nil, ErrPreconditionUnmet
	}

	out := nr.Clone()
	delete(out[c.neuron.NodeId].Inbound, chosen)
	return out, nil
}

func changeNeuronLayer(rng *rand.Rand, nr record.NodeRecords, props Properties) (record.NodeRecords, error) {
	target, ok := randomNeuron(rng, nr)
	if !ok {
		return nil, ErrPreconditionUnmet
	}

	max := maxLayer(nr)
	if max < 1 {
		max = 1
	}
	newLayer := int32(1 + rng.Intn(int(max)+1))

	out := nr.Clone()
	out[target.NodeId].Layer = newLayer
	return out, nil
}
