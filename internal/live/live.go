// Package live implements the sequential, single-cortex online evolution
// variant: only one cortex is materialised at a time, and the caller pumps
// SynchronizeActiveCortex to drive it one think cycle at a time. A single
// mutex-guarded Engine holds the active cortex, a pending queue of
// not-yet-materialised networks, and the scored batch accumulated so far.
package live

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"synaptica/internal/cortex"
	"synaptica/internal/mutate"
	"synaptica/internal/record"
	"synaptica/internal/scheduler"
	"synaptica/internal/tables"
	"synaptica/internal/telemetry"
)

// Directive reuses the score keeper's two-valued outcome; this package's
// own vocabulary names them ContinueThinkCycle and EndThinkCycle instead of
// Continue/EndGeneration, since here the unit being continued or ended is
// one network's think cycle rather than a whole generation.
type Directive = cortex.Directive

const (
	ContinueThinkCycle Directive = cortex.ContinueGeneration
	EndThinkCycle      Directive = cortex.EndGeneration
)

// Selector picks the survivors a filled generation should breed from.
type Selector func(scored scheduler.ScoredNodeRecords) map[tables.NetworkId]record.NodeRecords

// Properties configures an Engine: the same materialisation tables a
// scheduler run takes, plus a selector hook in place of a fixed
// divide-by-N survivor rule.
type Properties struct {
	MaximumMinds       int
	MaximumThinkCycles int
	ThinkTimeout       time.Duration

	Mutations mutate.Properties
	Fitness   cortex.FitnessFunc
	Selector  Selector

	Activations tables.ActivationFunctions
	Syncs       tables.SyncFunctionSources
	OutputHooks tables.OutputHookIds

	StartingRecords map[tables.NetworkId]record.NodeRecords

	Logger telemetry.Logger
}

// SyncResult reports what one SynchronizeActiveCortex call produced.
type SyncResult struct {
	ThinkResult        cortex.ThinkCycleResult
	GenerationFilled   bool
	ActiveNetworkId    tables.NetworkId
	CompletedNetworkId tables.NetworkId

	// CompletedGeneration carries the scored batch that just filled the
	// generation buffer, valid only when GenerationFilled is true.
	CompletedGeneration scheduler.ScoredNodeRecords
}

// Engine drives one cortex at a time: only the active network is ever
// live; everything else is an un-materialised record set waiting in the
// pending queue.
type Engine struct {
	mu    sync.Mutex
	props Properties
	rng   *rand.Rand

	pending  []tables.NetworkId
	pool     map[tables.NetworkId]record.NodeRecords
	scored   scheduler.ScoredNodeRecords

	activeID     tables.NetworkId
	activeCortex *cortex.Cortex
	activeKeeper *cortex.ScoreKeeper
	activeScore  float64
	activeCycles int
}

// NewEngine materialises the first network from props.StartingRecords and
// queues the rest, in ascending NetworkId order.
func NewEngine(rng *rand.Rand, props Properties) (*Engine, error) {
	if len(props.StartingRecords) == 0 {
		return nil, fmt.Errorf("live: starting records are required")
	}

	e := &Engine{
		props: props,
		rng:   rng,
		pool:  props.StartingRecords,
	}
	for id := range props.StartingRecords {
		e.pending = append(e.pending, id)
	}
	sort.Slice(e.pending, func(i, j int) bool { return e.pending[i] < e.pending[j] })

	if err := e.activateNext(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) logger() telemetry.Logger {
	if e.props.Logger != nil {
		return e.props.Logger
	}
	return telemetry.Noop()
}

// activateNext materialises the next pending network as the active
// cortex. The caller must hold e.mu.
func (e *Engine) activateNext() error {
	if len(e.pending) == 0 {
		return fmt.Errorf("live: no pending networks left to activate")
	}
	id := e.pending[0]
	e.pending = e.pending[1:]

	nr, ok := e.pool[id]
	if !ok {
		return fmt.Errorf("live: network %s missing from pool", id)
	}

	sk := cortex.NewScoreKeeper(id, e.props.Fitness)
	hooks := make(map[string]tables.OutputHook, len(e.props.OutputHooks))
	for _, hookID := range e.props.OutputHooks {
		hooks[hookID] = sk.HookFor(hookID)
	}

	c, err := cortex.Construct(nr, id, e.props.Activations, e.props.Syncs, hooks)
	if err != nil {
		return fmt.Errorf("live: construct network %s: %w", id, err)
	}

	e.activeID = id
	e.activeCortex = c
	e.activeKeeper = sk
	e.activeScore = 0
	e.activeCycles = 0
	return nil
}

// SynchronizeActiveCortex drives one ThinkAndAct on the active cortex,
// requests its score, and advances to the next network (or generation)
// once the fitness directive says EndThinkCycle or the cycle cap is hit.
func (e *Engine) SynchronizeActiveCortex(ctx context.Context) (SyncResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cycleCtx := ctx
	var cancel context.CancelFunc
	if e.props.ThinkTimeout > 0 {
		cycleCtx, cancel = context.WithTimeout(ctx, e.props.ThinkTimeout)
		defer cancel()
	}

	thinkResult := e.activeCortex.ThinkAndAct(cycleCtx)
	score, directive := e.activeKeeper.GetScore()
	e.activeScore += score
	e.activeCycles++

	e.logger().ThinkCycle(string(e.activeID), e.activeCycles, thinkResultLabel(thinkResult))

	result := SyncResult{ThinkResult: thinkResult, ActiveNetworkId: e.activeID}

	if directive != EndThinkCycle && e.activeCycles < e.props.MaximumThinkCycles {
		return result, nil
	}

	completedID := e.activeID
	finalRecords := e.activeCortex.Kill()
	e.activeKeeper.KillScoreKeeper()
	e.scored = append(e.scored, scheduler.ScoredRecord{
		NetworkId: completedID,
		Score:     e.activeScore,
		Records:   finalRecords,
	})
	result.CompletedNetworkId = completedID

	if len(e.pending) > 0 {
		if err := e.activateNext(); err != nil {
			return result, err
		}
		result.ActiveNetworkId = e.activeID
		return result, nil
	}

	result.GenerationFilled = true
	result.CompletedGeneration = e.scored
	survivors := e.props.Selector(e.scored)
	e.scored = nil

	generation, err := scheduler.EvolveGeneration(e.rng, survivors, e.props.MaximumMinds, e.props.Mutations)
	if err != nil {
		return result, fmt.Errorf("live: evolve next generation: %w", err)
	}
	e.pool = generation
	e.pending = e.pending[:0]
	for id := range generation {
		e.pending = append(e.pending, id)
	}
	sort.Slice(e.pending, func(i, j int) bool { return e.pending[i] < e.pending[j] })

	if err := e.activateNext(); err != nil {
		return result, err
	}
	result.ActiveNetworkId = e.activeID
	return result, nil
}

// EndEvolution kills the currently active cortex, discarding its
// in-progress score, and returns every network scored so far in the
// current generation.
func (e *Engine) EndEvolution() scheduler.ScoredNodeRecords {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.activeCortex != nil {
		e.activeCortex.Kill()
		e.activeKeeper.KillScoreKeeper()
		e.activeCortex = nil
		e.activeKeeper = nil
	}
	return e.scored
}

func thinkResultLabel(r cortex.ThinkCycleResult) string {
	if r == cortex.ThinkCycleIncomplete {
		return "ThinkCycleIncomplete"
	}
	return "ThinkCycleFinished"
}
