//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"synaptica/internal/codec"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists generations and score history through
// modernc.org/sqlite, grounded on internal/storage/sqlite.go's
// open-ping-createTables lifecycle and ON CONFLICT upsert idiom.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	s := NewSQLiteStore(path)
	return s, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveGeneration(ctx context.Context, runID string, generation int, scored []ScoredSnapshot) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM generations WHERE run_id = ? AND generation = ?`, runID, generation); err != nil {
		return err
	}
	for _, snap := range scored {
		payload, err := codec.Encode(snap.Records)
		if err != nil {
			return fmt.Errorf("encode network %s: %w", snap.NetworkId, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO generations (run_id, generation, network_id, score, payload)
			VALUES (?, ?, ?, ?, ?)
		`, runID, generation, snap.NetworkId, snap.Score, payload)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetGeneration(ctx context.Context, runID string, generation int) ([]ScoredSnapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT network_id, score, payload FROM generations
		WHERE run_id = ? AND generation = ?
		ORDER BY network_id
	`, runID, generation)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var out []ScoredSnapshot
	for rows.Next() {
		var snap ScoredSnapshot
		var payload []byte
		if err := rows.Scan(&snap.NetworkId, &snap.Score, &payload); err != nil {
			return nil, false, err
		}
		records, err := codec.Decode(payload)
		if err != nil {
			return nil, false, fmt.Errorf("decode network %s: %w", snap.NetworkId, err)
		}
		snap.Records = records
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(out) == 0 {
		return nil, false, nil
	}
	return out, true, nil
}

func (s *SQLiteStore) SaveScoreHistory(ctx context.Context, runID string, history []float64) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(history)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO score_history (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET payload = excluded.payload
	`, runID, payload)
	return err
}

func (s *SQLiteStore) GetScoreHistory(ctx context.Context, runID string) ([]float64, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM score_history WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var history []float64
	if err := json.Unmarshal(payload, &history); err != nil {
		return nil, false, fmt.Errorf("decode score history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM generations; DELETE FROM score_history;`)
	return err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			network_id TEXT NOT NULL,
			score REAL NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, generation, network_id)
		);
		CREATE TABLE IF NOT EXISTS score_history (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
