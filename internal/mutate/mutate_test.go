package mutate

import (
	"fmt"
	"math/rand"
	"testing"

	"synaptica/internal/record"
)

func oneNeuronFanIn() record.NodeRecords {
	bias := 1.0
	o0, o1 := record.Uint32Ptr(0), record.Uint32Ptr(1)
	sensorID, neuronID, actuatorID := record.NodeId(0), record.NodeId(1), record.NodeId(2)

	return record.NodeRecords{
		sensorID: {
			NodeId:              sensorID,
			Type:                record.SensorType(2),
			Inbound:             map[record.ConnectionId]record.InactiveConnection{},
			SyncFunctionID:      record.StringPtr("sync.pair"),
			MaximumVectorLength: record.Uint32Ptr(2),
		},
		neuronID: {
			NodeId: neuronID,
			Layer:  1,
			Type:   record.NeuronType(),
			Inbound: map[record.ConnectionId]record.InactiveConnection{
				"c0": {ConnectionOrder: o0, FromNode: sensorID, Weight: 2.0},
				"c1": {ConnectionOrder: o1, FromNode: sensorID, Weight: 4.0},
			},
			Bias:                 &bias,
			ActivationFunctionID: record.StringPtr("identity"),
		},
		actuatorID: {
			NodeId: actuatorID,
			Layer:  2,
			Type:   record.ActuatorType(),
			Inbound: map[record.ConnectionId]record.InactiveConnection{
				"c2": {FromNode: neuronID, Weight: 1.0},
			},
			OutputHookID: record.StringPtr("hook.score"),
		},
	}
}

func testProps(kinds ...Kind) Properties {
	return Properties{
		Mutations:     kinds,
		ActivationIds: []string{"identity", "sigmoid"},
		SyncIds:       []string{"sync.pair", "sync.solo"},
		OutputHookIds: []string{"hook.score", "hook.alt"},
	}
}

// TestAddNeuron_PreservesReachability checks that, starting from the
// one-neuron fan-in, one AddNeuron leaves at least one sensor-to-actuator
// path intact.
func TestAddNeuron_PreservesReachability(t *testing.T) {
	nr := oneNeuronFanIn()
	rng := rand.New(rand.NewSource(1))

	out, err := addNeuron(rng, nr, testProps(AddNeuron))
	if err != nil {
		t.Fatalf("addNeuron: %v", err)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("mutated records invalid: %v", err)
	}
	if len(out) != len(nr)+1 {
		t.Fatalf("expected one new node, got %d -> %d", len(nr), len(out))
	}
	if !reachesActuator(out) {
		t.Fatal("expected a surviving sensor->...->actuator path")
	}
}

func reachesActuator(nr record.NodeRecords) bool {
	visited := map[record.NodeId]bool{}
	var visit func(id record.NodeId) bool
	visit = func(id record.NodeId) bool {
		if visited[id] {
			return false
		}
		visited[id] = true
		if nr[id].IsActuator() {
			return true
		}
		for _, owner := range nr.Ids() {
			for _, conn := range nr[owner].Inbound {
				if conn.FromNode == id && visit(owner) {
					return true
				}
			}
		}
		return false
	}
	for _, s := range nr.Sensors() {
		if visit(s.NodeId) {
			return true
		}
	}
	return false
}

// TestMutateWeights_HonoursInverseSqrtDProbability checks that, over many
// trials on a neuron with 100 inbound edges, the empirical per-edge
// mutation probability sits near 1/sqrt(100) = 0.1.
func TestMutateWeights_HonoursInverseSqrtDProbability(t *testing.T) {
	nr := record.NodeRecords{
		record.NodeId(0): {
			NodeId:               0,
			Type:                 record.NeuronType(),
			ActivationFunctionID: record.StringPtr("identity"),
			Inbound:              map[record.ConnectionId]record.InactiveConnection{},
		},
	}
	for i := 0; i < 100; i++ {
		cid := record.ConnectionId(fmt.Sprintf("c%d", i))
		nr[0].Inbound[cid] = record.InactiveConnection{
			FromNode: record.NodeId(0),
			Weight:   1.0,
		}
	}

	rng := rand.New(rand.NewSource(42))
	trials := 2000
	changed := 0
	total := 0

	for i := 0; i < trials; i++ {
		out, err := mutateWeights(rng, nr, testProps(MutateWeights))
		if err != nil {
			t.Fatalf("mutateWeights: %v", err)
		}
		for cid, conn := range out[0].Inbound {
			total++
			if conn.Weight != nr[0].Inbound[cid].Weight {
				changed++
			}
		}
	}

	p := float64(changed) / float64(total)
	if p < 0.08 || p > 0.12 {
		t.Fatalf("expected empirical mutation probability near 0.1, got %v", p)
	}
}

// TestRemoveSensorLink_RenumbersAcrossOwners covers a sensor with
// outbound_count=3 feeding three distinct neurons at connection_order
// {0,1,2}; after one RemoveSensorLink the two survivors carry {0,1} and
// outbound_count drops to 2.
func TestRemoveSensorLink_RenumbersAcrossOwners(t *testing.T) {
	o0, o1, o2 := record.Uint32Ptr(0), record.Uint32Ptr(1), record.Uint32Ptr(2)
	sensorID := record.NodeId(0)

	nr := record.NodeRecords{
		sensorID: {
			NodeId:              sensorID,
			Type:                record.SensorType(3),
			Inbound:             map[record.ConnectionId]record.InactiveConnection{},
			SyncFunctionID:      record.StringPtr("sync.pair"),
			MaximumVectorLength: record.Uint32Ptr(0),
		},
		record.NodeId(1): {
			NodeId: 1, Layer: 1, Type: record.NeuronType(),
			ActivationFunctionID: record.StringPtr("identity"),
			Inbound: map[record.ConnectionId]record.InactiveConnection{
				"c0": {ConnectionOrder: o0, FromNode: sensorID, Weight: 1.0},
				"cx": {FromNode: 2, Weight: 1.0},
			},
		},
		record.NodeId(2): {
			NodeId: 2, Layer: 1, Type: record.NeuronType(),
			ActivationFunctionID: record.StringPtr("identity"),
			Inbound: map[record.ConnectionId]record.InactiveConnection{
				"c1": {ConnectionOrder: o1, FromNode: sensorID, Weight: 1.0},
				"cy": {FromNode: 1, Weight: 1.0},
			},
		},
		record.NodeId(3): {
			NodeId: 3, Layer: 1, Type: record.NeuronType(),
			ActivationFunctionID: record.StringPtr("identity"),
			Inbound: map[record.ConnectionId]record.InactiveConnection{
				"c2": {ConnectionOrder: o2, FromNode: sensorID, Weight: 1.0},
				"cz": {FromNode: 1, Weight: 1.0},
			},
		},
	}
	if err := nr.Validate(); err != nil {
		t.Fatalf("fixture invalid: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	var out record.NodeRecords
	var err error
	for i := 0; i < 200; i++ {
		out, err = removeSensorLink(rng, nr, testProps(RemoveSensorLink))
		if err == nil {
			break
		}
	}
	if err != nil {
		t.Fatalf("removeSensorLink never succeeded: %v", err)
	}

	if out[sensorID].Type.OutboundCount != 2 {
		t.Fatalf("expected outbound_count 2, got %d", out[sensorID].Type.OutboundCount)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("mutated records invalid: %v", err)
	}

	refs := out.InboundReferencesTo(sensorID)
	if len(refs) != 2 {
		t.Fatalf("expected 2 surviving sensor-sourced edges, got %d", len(refs))
	}
	seen := map[uint32]bool{}
	for _, ref := range refs {
		seen[*ref.Connection.ConnectionOrder] = true
	}
	if !seen[0] || !seen[1] {
		t.Fatalf("expected dense orders {0,1}, got %+v", seen)
	}
}

func TestApplyMutationSet_NoOpWhenSinglePreconditionUnmet(t *testing.T) {
	nr := record.NodeRecords{
		record.NodeId(0): {
			NodeId:               0,
			Type:                 record.NeuronType(),
			ActivationFunctionID: record.StringPtr("identity"),
			Inbound:              map[record.ConnectionId]record.InactiveConnection{},
			Bias:                 record.Float64Ptr(0.7),
		},
	}
	rng := rand.New(rand.NewSource(3))
	// RemoveBias's precondition holds here, so run AddBias in isolation,
	// which cannot be satisfied (bias already non-zero): with a
	// single-kind set the engine must no-op rather than error.
	out, err := ApplyMutationSet(rng, nr, testProps(AddBias))
	if err != nil {
		t.Fatalf("ApplyMutationSet: %v", err)
	}
	if *out[0].Bias != 0.7 {
		t.Fatalf("expected no-op, bias changed to %v", *out[0].Bias)
	}
}
