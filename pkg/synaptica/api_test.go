package synaptica

import (
	"context"
	"math"
	"testing"

	"synaptica/internal/cortex"
	"synaptica/internal/mutate"
	"synaptica/internal/record"
	"synaptica/internal/tables"
)

func oneNeuronFanIn() record.NodeRecords {
	bias := 0.5
	order := record.Uint32Ptr(0)
	sensorID := record.NodeId(0)
	neuronID := record.NodeId(1)
	actuatorID := record.NodeId(2)

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
				"c0": {ConnectionOrder: order, FromNode: sensorID, Weight: 3.0},
			},
			Bias:                 &bias,
			ActivationFunctionID: record.StringPtr("identity"),
		},
		actuatorID: {
			NodeId: actuatorID,
			Layer:  2,
			Type:   record.ActuatorType(),
			Inbound: map[record.ConnectionId]record.InactiveConnection{
				"c1": {FromNode: neuronID, Weight: 1.0},
			},
			OutputHookID: record.StringPtr("hook.score"),
		},
	}
}

func testTables() (tables.ActivationFunctions, tables.SyncFunctionSources, tables.OutputHookIds) {
	activations := tables.ActivationFunctions{
		"identity": func(x float64) float64 { return x },
		"sigmoid":  func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
	}
	syncs := tables.SyncFunctionSources{
		"sync.const": func(tables.NetworkId) tables.SyncFunc { return func() []float64 { return []float64{2.0} } },
	}
	hooks := tables.OutputHookIds{"hook.score"}
	return activations, syncs, hooks
}

func startingPopulation(n int) map[tables.NetworkId]record.NodeRecords {
	base := oneNeuronFanIn()
	out := make(map[tables.NetworkId]record.NodeRecords, n)
	for i := 0; i < n; i++ {
		out[tables.NetworkId(string(rune('0'+i)))] = base.Clone()
	}
	return out
}

func TestClientRunPersistsGenerationsAndHistory(t *testing.T) {
	ctx := context.Background()
	client, err := New(ctx, Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	activations, syncs, hooks := testTables()
	fitness := func(_ tables.NetworkId, buffer map[string]float64) (float64, cortex.Directive) {
		return buffer["hook.score"], cortex.ContinueGeneration
	}

	summary, err := client.Run(ctx, RunRequest{
		RunID:              "run-1",
		MaximumMinds:       4,
		MaximumThinkCycles: 2,
		Generations:        3,
		DividePopulationBy: 2,
		Mutations: mutate.Properties{
			Mutations:     []mutate.Kind{mutate.MutateWeights},
			ActivationIds: []string{"identity", "sigmoid"},
			SyncIds:       []string{"sync.const"},
			OutputHookIds: []string{"hook.score"},
		},
		Fitness:         fitness,
		Activations:     activations,
		Syncs:           syncs,
		OutputHooks:     hooks,
		StartingRecords: startingPopulation(4),
		Persist:         true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID != "run-1" {
		t.Fatalf("unexpected run id: %s", summary.RunID)
	}
	if len(summary.Final) != 4 {
		t.Fatalf("expected 4 scored networks in the final generation, got %d", len(summary.Final))
	}
	for i := 1; i < len(summary.Final); i++ {
		if summary.Final[i-1].Score < summary.Final[i].Score {
			t.Fatalf("expected final generation sorted descending by score: %+v", summary.Final)
		}
	}
	if len(summary.BestByGeneration) != 3 {
		t.Fatalf("expected 3 generations of best-score history, got %d", len(summary.BestByGeneration))
	}

	persisted, ok, err := client.Generation(ctx, "run-1", 3)
	if err != nil {
		t.Fatalf("get persisted generation: %v", err)
	}
	if !ok || len(persisted) != 4 {
		t.Fatalf("expected persisted final generation of size 4, got ok=%t len=%d", ok, len(persisted))
	}

	history, ok, err := client.ScoreHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("get score history: %v", err)
	}
	if !ok || len(history) != 3 {
		t.Fatalf("expected persisted score history of length 3, got ok=%t len=%d", ok, len(history))
	}
}

func TestClientRunRejectsMissingFitnessOrStartingRecords(t *testing.T) {
	ctx := context.Background()
	client, err := New(ctx, Options{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if _, err := client.Run(ctx, RunRequest{}); err == nil {
		t.Fatal("expected error for missing starting records")
	}

	if _, err := client.Run(ctx, RunRequest{StartingRecords: startingPopulation(2)}); err == nil {
		t.Fatal("expected error for missing fitness function")
	}
}

func TestClientLiveSessionFillsGenerationAndPersists(t *testing.T) {
	ctx := context.Background()
	client, err := New(ctx, Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	activations, syncs, hooks := testTables()
	fitness := func(_ tables.NetworkId, buffer map[string]float64) (float64, cortex.Directive) {
		return buffer["hook.score"], cortex.EndGeneration
	}

	session, err := client.NewLiveSession(LiveRequest{
		RunID:              "live-1",
		MaximumMinds:       2,
		MaximumThinkCycles: 1,
		Mutations: mutate.Properties{
			Mutations: []mutate.Kind{mutate.MutateWeights},
		},
		Fitness:         fitness,
		Activations:     activations,
		Syncs:           syncs,
		OutputHooks:     hooks,
		StartingRecords: startingPopulation(2),
		Persist:         true,
	})
	if err != nil {
		t.Fatalf("new live session: %v", err)
	}

	var filled bool
	for i := 0; i < 2 && !filled; i++ {
		result, err := session.Synchronize(ctx)
		if err != nil {
			t.Fatalf("synchronize %d: %v", i, err)
		}
		filled = result.GenerationFilled
	}
	if !filled {
		t.Fatal("expected the 2-network generation to fill after two syncs")
	}

	persisted, ok, err := client.Generation(ctx, "live-1", 1)
	if err != nil {
		t.Fatalf("get persisted live generation: %v", err)
	}
	if !ok || len(persisted) != 2 {
		t.Fatalf("expected persisted live generation of size 2, got ok=%t len=%d", ok, len(persisted))
	}
}

func TestClientLiveSessionEndReturnsScoredSoFar(t *testing.T) {
	ctx := context.Background()
	client, err := New(ctx, Options{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	activations, syncs, hooks := testTables()
	fitness := func(_ tables.NetworkId, buffer map[string]float64) (float64, cortex.Directive) {
		return buffer["hook.score"], cortex.EndGeneration
	}

	session, err := client.NewLiveSession(LiveRequest{
		MaximumMinds:       2,
		MaximumThinkCycles: 1,
		Fitness:            fitness,
		Activations:        activations,
		Syncs:              syncs,
		OutputHooks:        hooks,
		StartingRecords:    startingPopulation(2),
	})
	if err != nil {
		t.Fatalf("new live session: %v", err)
	}

	if _, err := session.Synchronize(ctx); err != nil {
		t.Fatalf("synchronize: %v", err)
	}

	scored := session.End()
	if len(scored) != 1 {
		t.Fatalf("expected exactly 1 scored network before the generation filled, got %d", len(scored))
	}
}
