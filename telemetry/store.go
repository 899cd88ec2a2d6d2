package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// ErrStoreNotInitialized is returned by RunStore methods called before Init.
var ErrStoreNotInitialized = errors.New("run store is not initialized")

// RunInfo describes one recorded run.
type RunInfo struct {
	ID        string
	Seed      int64
	StartedAt time.Time
	Turns     int
}

// StoredTurn is one turn row read back from the store.
type StoredTurn struct {
	Turn         int
	FoodAfter    int
	SpeciesCount int
	Population   int
	Extinct      bool
}

// RunStore persists turn summaries to SQLite so runs can be plotted or
// compared after the fact.
type RunStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewRunStore creates a store backed by the SQLite file at path.
func NewRunStore(path string) *RunStore {
	return &RunStore{path: path}
}

// Init opens the database and creates tables if needed.
func (s *RunStore) Init(ctx context.Context) error {
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
		return fmt.Errorf("opening run store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("opening run store: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("creating run store tables: %w", err)
	}

	s.db = db
	return nil
}

// BeginRun registers a new run and returns its identifier.
func (s *RunStore) BeginRun(ctx context.Context, seed int64, configYAML []byte) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, started_at, config)
		VALUES (?, ?, ?, ?)
	`, id, seed, time.Now().UTC().Format(time.RFC3339Nano), configYAML)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// SaveTurn writes one turn summary and its species rows in a single transaction.
func (s *RunStore) SaveTurn(ctx context.Context, runID string, sum TurnSummary) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	events, err := json.Marshal(sum.Events)
	if err != nil {
		return fmt.Errorf("encoding events: %w", err)
	}
	tally, err := json.Marshal(sum.TraitTally)
	if err != nil {
		return fmt.Errorf("encoding trait tally: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (run_id, turn, food_before, food_delta, food_after, species_count, population, extinct, events, trait_tally)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, turn) DO UPDATE SET
			food_before = excluded.food_before,
			food_delta = excluded.food_delta,
			food_after = excluded.food_after,
			species_count = excluded.species_count,
			population = excluded.population,
			extinct = excluded.extinct,
			events = excluded.events,
			trait_tally = excluded.trait_tally
	`, runID, sum.Turn, sum.FoodBefore, sum.FoodDelta, sum.FoodAfter, sum.SpeciesCount,
		sum.TotalPopulation(), sum.Extinct, events, tally)
	if err != nil {
		return fmt.Errorf("inserting turn %d: %w", sum.Turn, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM species WHERE run_id = ? AND turn = ?`, runID, sum.Turn); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO species (run_id, turn, species_id, parent_id, age, traits, population, body_size, phase_food, total_food)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range sum.Species {
		if _, err := stmt.ExecContext(ctx, runID, sum.Turn, r.ID, r.ParentID, r.Age,
			r.Traits.String(), r.Population, r.BodySize, r.PhaseFood, r.TotalFood); err != nil {
			return fmt.Errorf("inserting species %d: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// Turns returns every stored turn of a run in turn order.
func (s *RunStore) Turns(ctx context.Context, runID string) ([]StoredTurn, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT turn, food_after, species_count, population, extinct
		FROM turns WHERE run_id = ? ORDER BY turn
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredTurn
	for rows.Next() {
		var t StoredTurn
		if err := rows.Scan(&t.Turn, &t.FoodAfter, &t.SpeciesCount, &t.Population, &t.Extinct); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SpeciesAt returns the species rows stored for one turn of a run.
func (s *RunStore) SpeciesAt(ctx context.Context, runID string, turn int) ([]SpeciesRow, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT turn, species_id, parent_id, age, traits, population, body_size, phase_food, total_food
		FROM species WHERE run_id = ? AND turn = ? ORDER BY rowid
	`, runID, turn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SpeciesRow
	for rows.Next() {
		var r SpeciesRow
		if err := rows.Scan(&r.Turn, &r.ID, &r.ParentID, &r.Age, &r.Traits,
			&r.Population, &r.BodySize, &r.PhaseFood, &r.TotalFood); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run returns metadata for a stored run.
func (s *RunStore) Run(ctx context.Context, runID string) (RunInfo, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return RunInfo{}, false, err
	}

	var (
		info    RunInfo
		started string
	)
	err = db.QueryRowContext(ctx, `
		SELECT r.id, r.seed, r.started_at, COUNT(t.turn)
		FROM runs r LEFT JOIN turns t ON t.run_id = r.id
		WHERE r.id = ?
		GROUP BY r.id
	`, runID).Scan(&info.ID, &info.Seed, &started, &info.Turns)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunInfo{}, false, nil
		}
		return RunInfo{}, false, err
	}
	info.StartedAt, err = time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return RunInfo{}, false, fmt.Errorf("decode run %s start time: %w", runID, err)
	}
	return info, true, nil
}

// Close closes the database.
func (s *RunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *RunStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrStoreNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			config BLOB
		);
		CREATE TABLE IF NOT EXISTS turns (
			run_id TEXT NOT NULL REFERENCES runs(id),
			turn INTEGER NOT NULL,
			food_before INTEGER NOT NULL,
			food_delta INTEGER NOT NULL,
			food_after INTEGER NOT NULL,
			species_count INTEGER NOT NULL,
			population INTEGER NOT NULL,
			extinct INTEGER NOT NULL,
			events TEXT NOT NULL,
			trait_tally TEXT NOT NULL,
			PRIMARY KEY (run_id, turn)
		);
		CREATE TABLE IF NOT EXISTS species (
			run_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			species_id INTEGER NOT NULL,
			parent_id INTEGER NOT NULL,
			age INTEGER NOT NULL,
			traits TEXT NOT NULL,
			population INTEGER NOT NULL,
			body_size INTEGER NOT NULL,
			phase_food INTEGER NOT NULL,
			total_food INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS species_run_turn ON species (run_id, turn);
	`)
	return err
}
