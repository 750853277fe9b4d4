// Package synaptica is the public entry point a host program imports: it
// wires internal/scheduler's generation loop, internal/live's online
// variant, and internal/storage's persistence behind one Client, with
// New/Close plus a Run-shaped request/summary per capability.
package synaptica

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"synaptica/internal/cortex"
	"synaptica/internal/live"
	"synaptica/internal/mutate"
	"synaptica/internal/record"
	"synaptica/internal/scheduler"
	"synaptica/internal/storage"
	"synaptica/internal/tables"
	"synaptica/internal/telemetry"
)

const (
	defaultStoreKind          = "memory"
	defaultDBPath             = "synaptica.db"
	defaultMaximumThinkCycles = 50
	defaultGenerations        = 10
	defaultDividePopulationBy = 2
	defaultThinkTimeout       = 2 * time.Second
)

// Options configures a Client.
type Options struct {
	StoreKind string
	DBPath    string
	Logger    telemetry.Logger
}

// Client owns the persistence backend behind every evolution run it
// drives; callers create one Client per process (or per store file) and
// reuse it across many Run/RunLive calls.
type Client struct {
	store  storage.Store
	logger telemetry.Logger
}

// New builds a Client, opening its storage backend eagerly so that a
// misconfigured store (e.g. an invalid sqlite path) fails at construction
// rather than on first use.
func New(ctx context.Context, opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = defaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = telemetry.Noop()
	}

	return &Client{store: store, logger: logger}, nil
}

// Close releases the Client's storage backend, if its kind supports it.
func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// RunRequest mirrors internal/scheduler.Properties, adding an optional
// run id under which generation snapshots and score history are persisted.
type RunRequest struct {
	RunID string
	Seed  int64

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

	Persist bool
}

// RunSummary reports the final generation a Run produced.
type RunSummary struct {
	RunID            string
	Final            scheduler.ScoredNodeRecords
	BestScore        float64
	BestByGeneration []float64
}

// Run drives internal/scheduler.EvolveForXGenerations to completion and,
// when req.Persist is set, saves each generation and the running score
// history to the Client's store.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if len(req.StartingRecords) == 0 {
		return RunSummary{}, errors.New("synaptica: starting records are required")
	}
	if req.MaximumMinds <= 0 {
		req.MaximumMinds = len(req.StartingRecords)
	}
	if req.MaximumThinkCycles <= 0 {
		req.MaximumThinkCycles = defaultMaximumThinkCycles
	}
	if req.Generations <= 0 {
		req.Generations = defaultGenerations
	}
	if req.DividePopulationBy <= 0 {
		req.DividePopulationBy = defaultDividePopulationBy
	}
	if req.ThinkTimeout <= 0 {
		req.ThinkTimeout = defaultThinkTimeout
	}
	if req.Fitness == nil {
		return RunSummary{}, errors.New("synaptica: a fitness function is required")
	}
	if req.RunID == "" {
		req.RunID = fmt.Sprintf("run-%d", time.Now().UTC().UnixNano())
	}

	runID := req.RunID
	var history []float64

	endOfGeneration := func(scored scheduler.ScoredNodeRecords) {
		if len(scored) > 0 {
			history = append(history, scored[0].Score)
		}
		if !req.Persist {
			return
		}
		snapshot := toSnapshots(scored)
		if err := c.store.SaveGeneration(ctx, runID, len(history), snapshot); err != nil {
			c.logger.Infof("persist generation %d for run %s failed: %v", len(history), runID, err)
			return
		}
		if err := c.store.SaveScoreHistory(ctx, runID, history); err != nil {
			c.logger.Infof("persist score history for run %s failed: %v", runID, err)
		}
	}

	scored, err := scheduler.EvolveForXGenerations(ctx, rand.New(rand.NewSource(req.Seed)), scheduler.Properties{
		MaximumMinds:       req.MaximumMinds,
		MaximumThinkCycles: req.MaximumThinkCycles,
		Generations:        req.Generations,
		DividePopulationBy: req.DividePopulationBy,
		AsyncScoring:       req.AsyncScoring,
		ThinkTimeout:       req.ThinkTimeout,
		Mutations:          req.Mutations,
		Fitness:            req.Fitness,
		Activations:        req.Activations,
		Syncs:              req.Syncs,
		OutputHooks:        req.OutputHooks,
		StartingRecords:    req.StartingRecords,
		EndOfGeneration:    endOfGeneration,
		Logger:             c.logger,
	})
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{RunID: runID, Final: scored, BestByGeneration: history}
	if len(scored) > 0 {
		summary.BestScore = scored[0].Score
	}
	return summary, nil
}

// Generation returns a previously persisted generation for runID, if any.
func (c *Client) Generation(ctx context.Context, runID string, generation int) (scheduler.ScoredNodeRecords, bool, error) {
	snapshots, ok, err := c.store.GetGeneration(ctx, runID, generation)
	if err != nil || !ok {
		return nil, ok, err
	}
	return fromSnapshots(snapshots), true, nil
}

// ScoreHistory returns the best-score-per-generation series persisted for
// runID, if any.
func (c *Client) ScoreHistory(ctx context.Context, runID string) ([]float64, bool, error) {
	return c.store.GetScoreHistory(ctx, runID)
}

// LiveRequest configures a live, single-cortex online evolution session
// (internal/live).
type LiveRequest struct {
	RunID string
	Seed  int64

	MaximumMinds       int
	MaximumThinkCycles int
	ThinkTimeout       time.Duration

	Mutations mutate.Properties
	Fitness   cortex.FitnessFunc
	Selector  live.Selector

	Activations tables.ActivationFunctions
	Syncs       tables.SyncFunctionSources
	OutputHooks tables.OutputHookIds

	StartingRecords map[tables.NetworkId]record.NodeRecords

	Persist bool
}

// LiveSession wraps a live.Engine plus the bookkeeping a Client needs to
// persist completed generations on a running live evolution session.
type LiveSession struct {
	client *Client
	engine *live.Engine
	runID  string
	persist bool

	generation int
}

// NewLiveSession materialises the first cortex of a live evolution run.
// The caller drives it forward by repeatedly calling Synchronize.
func (c *Client) NewLiveSession(req LiveRequest) (*LiveSession, error) {
	if len(req.StartingRecords) == 0 {
		return nil, errors.New("synaptica: starting records are required")
	}
	if req.MaximumMinds <= 0 {
		req.MaximumMinds = len(req.StartingRecords)
	}
	if req.MaximumThinkCycles <= 0 {
		req.MaximumThinkCycles = defaultMaximumThinkCycles
	}
	if req.ThinkTimeout <= 0 {
		req.ThinkTimeout = defaultThinkTimeout
	}
	if req.Fitness == nil {
		return nil, errors.New("synaptica: a fitness function is required")
	}
	if req.Selector == nil {
		req.Selector = func(scored scheduler.ScoredNodeRecords) map[tables.NetworkId]record.NodeRecords {
			out := make(map[tables.NetworkId]record.NodeRecords, len(scored))
			for _, s := range scored {
				out[s.NetworkId] = s.Records
			}
			return out
		}
	}
	if req.RunID == "" {
		req.RunID = fmt.Sprintf("live-%d", time.Now().UTC().UnixNano())
	}

	engine, err := live.NewEngine(rand.New(rand.NewSource(req.Seed)), live.Properties{
		MaximumMinds:       req.MaximumMinds,
		MaximumThinkCycles: req.MaximumThinkCycles,
		ThinkTimeout:       req.ThinkTimeout,
		Mutations:          req.Mutations,
		Fitness:            req.Fitness,
		Selector:           req.Selector,
		Activations:        req.Activations,
		Syncs:              req.Syncs,
		OutputHooks:        req.OutputHooks,
		StartingRecords:    req.StartingRecords,
		Logger:             c.logger,
	})
	if err != nil {
		return nil, err
	}

	return &LiveSession{client: c, engine: engine, runID: req.RunID, persist: req.Persist}, nil
}

// Synchronize drives the session's active cortex through one think cycle
// (live.Engine.SynchronizeActiveCortex), persisting the just-filled
// generation when one completes and the session was created with Persist.
func (s *LiveSession) Synchronize(ctx context.Context) (live.SyncResult, error) {
	result, err := s.engine.SynchronizeActiveCortex(ctx)
	if err != nil {
		return result, err
	}
	if result.GenerationFilled && s.persist {
		s.generation++
		snapshot := toSnapshots(result.CompletedGeneration)
		if saveErr := s.client.store.SaveGeneration(ctx, s.runID, s.generation, snapshot); saveErr != nil {
			s.client.logger.Infof("persist live generation %d for run %s failed: %v", s.generation, s.runID, saveErr)
		}
	}
	return result, nil
}

// End stops the session's active cortex and returns every network scored
// so far in the current generation.
func (s *LiveSession) End() scheduler.ScoredNodeRecords {
	return s.engine.EndEvolution()
}

func toSnapshots(scored scheduler.ScoredNodeRecords) []storage.ScoredSnapshot {
	out := make([]storage.ScoredSnapshot, 0, len(scored))
	for _, s := range scored {
		out = append(out, storage.ScoredSnapshot{NetworkId: string(s.NetworkId), Score: s.Score, Records: s.Records})
	}
	return out
}

func fromSnapshots(snapshots []storage.ScoredSnapshot) scheduler.ScoredNodeRecords {
	out := make(scheduler.ScoredNodeRecords, 0, len(snapshots))
	for _, snap := range snapshots {
		out = append(out, scheduler.ScoredRecord{NetworkId: tables.NetworkId(snap.NetworkId), Score: snap.Score, Records: snap.Records})
	}
	return out
}
