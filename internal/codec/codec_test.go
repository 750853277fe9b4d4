package codec

import (
	"testing"

	"synaptica/internal/record"
)

func sampleRecords() record.NodeRecords {
	sensorID := record.NodeId(0)
	neuronID := record.NodeId(1)
	actuatorID := record.NodeId(2)
	order := record.Uint32Ptr(0)

	return record.NodeRecords{
		sensorID: {
			NodeId:              sensorID,
			Type:                record.SensorType(1),
			Inbound:             map[record.ConnectionId]record.InactiveConnection{},
			SyncFunctionID:      record.StringPtr("sync.const"),
			MaximumVectorLength: record.Uint32Ptr(1),
		},
		neuronID: {
			NodeId: neuronID,
			Layer:  1,
			Type:   record.NeuronType(),
			Inbound: map[record.ConnectionId]record.InactiveConnection{
				"c0": {ConnectionOrder: order, FromNode: sensorID, Weight: 2.5},
			},
			Bias:                  record.Float64Ptr(0.1),
			ActivationFunctionID:  record.StringPtr("identity"),
			Learning:               record.LearningAlgorithm{Kind: record.Hebbian, Rate: 0.01},
		},
		actuatorID: {
			NodeId: actuatorID,
			Layer:  2,
			Type:   record.ActuatorType(),
			Inbound: map[record.ConnectionId]record.InactiveConnection{
				"c1": {FromNode: neuronID, Weight: 1.0},
			},
			OutputHookID: record.StringPtr("hook.collect"),
		},
	}
}

func TestRoundTrip(t *testing.T) {
	original := sampleRecords()
	data, err := Encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(decoded) != len(original) {
		t.Fatalf("expected %d nodes, got %d", len(original), len(decoded))
	}
	neuron := decoded[1]
	if neuron.Bias == nil || *neuron.Bias != 0.1 {
		t.Fatalf("bias did not round-trip: %+v", neuron.Bias)
	}
	if neuron.Learning.Kind != record.Hebbian || neuron.Learning.Rate != 0.01 {
		t.Fatalf("learning algorithm did not round-trip: %+v", neuron.Learning)
	}
	conn := neuron.Inbound["c0"]
	if conn.ConnectionOrder == nil || *conn.ConnectionOrder != 0 {
		t.Fatalf("connection order did not round-trip: %+v", conn)
	}

	if err := decoded.Validate(); err != nil {
		t.Fatalf("decoded records are invalid: %v", err)
	}
}

func TestDecode_RejectsVersionMismatch(t *testing.T) {
	_, err := Decode([]byte(`{"schema_version":99,"codec_version":1,"nodes":[]}`))
	if err == nil {
		t.Fatal("expected version mismatch error")
	}
}

func TestDecode_RejectsUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"schema_version":1,"codec_version":1,"nodes":[{"node_id":0,"type":{"kind":"mystery"},"inbound_connections":{},"learning_algorithm":{"kind":"none"}}]}`))
	if err == nil {
		t.Fatal("expected unknown-kind error")
	}
}
