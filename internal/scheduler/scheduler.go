// Package scheduler implements EvolveForXGenerations: the evolve ->
// materialise -> drive -> score -> teardown -> select loop that drives
// one population across many generations. Parallel think-cycle dispatch,
// when AsyncScoring is set, fans each network's cortex out onto its own
// goroutine via github.com/sourcegraph/conc/pool and waits for the whole
// generation to settle before requesting any score.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"synaptica/internal/cortex"
	"synaptica/internal/mutate"
	"synaptica/internal/record"
	"synaptica/internal/tables"
	"synaptica/internal/telemetry"
)

// ScoredRecord pairs one network's id with its generation score and final
// records.
type ScoredRecord struct {
	NetworkId tables.NetworkId
	Score     float64
	Records   record.NodeRecords
}

type ScoredNodeRecords []ScoredRecord

// Properties configures one EvolveForXGenerations run.
type Properties struct {
	MaximumMinds       int
	MaximumThinkCycles int
	Generations        int
	DividePopulationBy int
	AsyncScoring       bool
	ThinkTimeout       time.Duration

	Mutations mutate.Properties
	Fitness   cortex.FitnessFunc

	Activations tables.ActivationFunctions
	Syncs       tables.SyncFunctionSources
	OutputHooks tables.OutputHookIds

	StartingRecords map[tables.NetworkId]record.NodeRecords

	EndOfGeneration func(ScoredNodeRecords)
	Logger          telemetry.Logger
}

// EvolveForXGenerations runs the full generation loop and returns the
// final generation's scored population, sorted descending by score.
func EvolveForXGenerations(ctx context.Context, rng *rand.Rand, props Properties) (ScoredNodeRecords, error) {
	logger := props.Logger
	if logger == nil {
		logger = telemetry.Noop()
	}

	survivors := props.StartingRecords
	var scored ScoredNodeRecords

	for gen := 0; gen < props.Generations; gen++ {
		start := time.Now()

		generation, err := evolve(rng, survivors, props)
		if err != nil {
			return nil, fmt.Errorf("generation %d evolve: %w", gen, err)
		}

		scored, err = materialiseAndDrive(ctx, generation, props, logger)
		if err != nil {
			return nil, fmt.Errorf("generation %d drive: %w", gen, err)
		}

		sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

		if props.EndOfGeneration != nil {
			props.EndOfGeneration(scored)
		}

		logger.Generation(gen+1, props.Generations, len(generation), time.Since(start))

		survivors = selectSurvivors(scored, props.DividePopulationBy)
	}

	return scored, nil
}

// evolve produces a fresh generation of size MaximumMinds by rotating the
// survivor list and applying the mutator once per output slot; new ids
// are dense integers starting at 0.
func evolve(rng *rand.Rand, survivors map[tables.NetworkId]record.NodeRecords, props Properties) (map[tables.NetworkId]record.NodeRecords, error) {
	return EvolveGeneration(rng, survivors, props.MaximumMinds, props.Mutations)
}

// EvolveGeneration is the same rotate-and-mutate breeding logic evolve
// uses, exported so the live evolution variant (internal/live) can reuse
// it between filled generations without duplicating the breeding policy.
func EvolveGeneration(rng *rand.Rand, survivors map[tables.NetworkId]record.NodeRecords, maximumMinds int, mutations mutate.Properties) (map[tables.NetworkId]record.NodeRecords, error) {
	if len(survivors) == 0 {
		return nil, fmt.Errorf("evolve: no surviving records to breed from")
	}

	ids := make([]tables.NetworkId, 0, len(survivors))
	for id := range survivors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make(map[tables.NetworkId]record.NodeRecords, maximumMinds)
	for i := 0; i < maximumMinds; i++ {
		source := survivors[ids[i%len(ids)]]
		mutated, err := mutate.ApplyMutationSet(rng, source.Clone(), mutations)
		if err != nil {
			return nil, err
		}
		newID := tables.NetworkId(fmt.Sprintf("%d", i))
		out[newID] = mutated
	}
	return out, nil
}

type materialised struct {
	networkId tables.NetworkId
	cortex    *cortex.Cortex
	keeper    *cortex.ScoreKeeper
	score     float64
}

func materialiseAndDrive(ctx context.Context, generation map[tables.NetworkId]record.NodeRecords, props Properties, logger telemetry.Logger) (ScoredNodeRecords, error) {
	var live []*materialised
	for id, nr := range generation {
		sk := cortex.NewScoreKeeper(id, props.Fitness)
		hooks := make(map[string]tables.OutputHook, len(props.OutputHooks))
		for _, hookID := range props.OutputHooks {
			hooks[hookID] = sk.HookFor(hookID)
		}

		c, err := cortex.Construct(nr, id, props.Activations, props.Syncs, hooks)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", id, err)
		}
		live = append(live, &materialised{networkId: id, cortex: c, keeper: sk})
	}

	endGeneration := false
	for cycle := 0; cycle < props.MaximumThinkCycles && !endGeneration; cycle++ {
		if props.AsyncScoring {
			p := pool.New().WithMaxGoroutines(len(live))
			for _, m := range live {
				m := m
				p.Go(func() { driveOneCycle(ctx, m, props, logger, cycle) })
			}
			p.Wait()
		} else {
			for _, m := range live {
				driveOneCycle(ctx, m, props, logger, cycle)
			}
		}

		for _, m := range live {
			score, directive := m.keeper.GetScore()
			m.score += score
			if directive == cortex.EndGeneration {
				endGeneration = true
			}
		}
	}

	scored := make(ScoredNodeRecords, 0, len(live))
	for _, m := range live {
		nr := m.cortex.Kill()
		m.keeper.KillScoreKeeper()
		scored = append(scored, ScoredRecord{NetworkId: m.networkId, Score: m.score, Records: nr})
	}
	return scored, nil
}

// driveOneCycle only posts ThinkAndAct; GetScore is requested once per
// cortex after every cortex in the generation has completed its cycle,
// so it must not be called here.
func driveOneCycle(ctx context.Context, m *materialised, props Properties, logger telemetry.Logger, cycle int) {
	cycleCtx, cancel := context.WithTimeout(ctx, props.ThinkTimeout)
	defer cancel()
	result := m.cortex.ThinkAndAct(cycleCtx)
	label := "ThinkCycleFinished"
	if result == cortex.ThinkCycleIncomplete {
		label = "ThinkCycleIncomplete"
	}
	logger.ThinkCycle(string(m.networkId), cycle, label)
}

// selectSurvivors sorts descending by score and retains the first chunk of
// size max(ceil(pop/divisor), 2).
func selectSurvivors(scored ScoredNodeRecords, divisor int) map[tables.NetworkId]record.NodeRecords {
	if divisor < 1 {
		divisor = 1
	}
	chunkSize := (len(scored) + divisor - 1) / divisor
	if chunkSize < 2 {
		chunkSize = 2
	}
	if chunkSize > len(scored) {
		chunkSize = len(scored)
	}

	out := make(map[tables.NetworkId]record.NodeRecords, chunkSize)
	for _, s := range scored[:chunkSize] {
		out[s.NetworkId] = s.Records
	}
	return out
}
