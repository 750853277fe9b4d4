package tables

import (
	"testing"

	"synaptica/internal/record"
)

func TestLookup(t *testing.T) {
	activations := ActivationFunctions{"identity": func(x float64) float64 { return x }}
	if _, err := activations.Lookup("identity"); err != nil {
		t.Fatalf("expected lookup to succeed: %v", err)
	}
	if _, err := activations.Lookup("missing"); err == nil {
		t.Fatal("expected lookup of missing id to fail")
	}
}

func TestIdsSorted(t *testing.T) {
	activations := ActivationFunctions{"z": nil, "a": nil, "m": nil}
	ids := activations.Ids()
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "m" || ids[2] != "z" {
		t.Fatalf("expected sorted ids, got %v", ids)
	}
}

func TestValidateAgainst(t *testing.T) {
	sensorID := record.NodeId(0)
	neuronID := record.NodeId(1)
	actuatorID := record.NodeId(2)

	nr := record.NodeRecords{
		sensorID: {
			NodeId:         sensorID,
			Type:           record.SensorType(0),
			Inbound:        map[record.ConnectionId]record.InactiveConnection{},
			SyncFunctionID: record.StringPtr("sync.const"),
		},
		neuronID: {
			NodeId:                neuronID,
			Type:                  record.NeuronType(),
			Inbound:               map[record.ConnectionId]record.InactiveConnection{},
			ActivationFunctionID:  record.StringPtr("identity"),
		},
		actuatorID: {
			NodeId:       actuatorID,
			Type:         record.ActuatorType(),
			Inbound:      map[record.ConnectionId]record.InactiveConnection{},
			OutputHookID: record.StringPtr("hook.collect"),
		},
	}

	activations := ActivationFunctions{"identity": func(x float64) float64 { return x }}
	syncs := SyncFunctionSources{"sync.const": func(NetworkId) SyncFunc { return func() []float64 { return []float64{1} } }}
	hooks := OutputHookIds{"hook.collect"}

	if err := ValidateAgainst(nr, activations, syncs, hooks); err != nil {
		t.Fatalf("expected tables to validate: %v", err)
	}

	if err := ValidateAgainst(nr, ActivationFunctions{}, syncs, hooks); err == nil {
		t.Fatal("expected missing activation function to fail validation")
	}
}
