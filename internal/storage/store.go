// Package storage persists generation snapshots and score history across
// runs. It is additive: the core evolution algorithm in internal/scheduler
// and internal/live never requires a Store, but a caller's EndOfGeneration
// hook may use one to make long-running generation or live-evolution
// sessions resumable.
package storage

import (
	"context"

	"synaptica/internal/record"
)

// ScoredSnapshot is a storage-layer copy of one network's outcome for a
// generation, independent of internal/scheduler's ScoredRecord so this
// low-level package never needs to import the higher-level scheduler
// package.
type ScoredSnapshot struct {
	NetworkId string
	Score     float64
	Records   record.NodeRecords
}

// Store defines persistence operations for synaptica runs.
type Store interface {
	Init(ctx context.Context) error

	SaveGeneration(ctx context.Context, runID string, generation int, scored []ScoredSnapshot) error
	GetGeneration(ctx context.Context, runID string, generation int) ([]ScoredSnapshot, bool, error)

	SaveScoreHistory(ctx context.Context, runID string, history []float64) error
	GetScoreHistory(ctx context.Context, runID string) ([]float64, bool, error)
}

// Resetter is an optional capability a Store may implement to clear all
// persisted state.
type Resetter interface {
	Reset(ctx context.Context) error
}
