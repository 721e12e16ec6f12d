package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRunNotFound is returned when no run matches the requested ID
var ErrRunNotFound = errors.New("valuation run not found")

// Run kinds
const (
	KindWACC        = "wacc"
	KindDCF         = "dcf"
	KindReverseDCF  = "reverse_dcf"
	KindSensitivity = "sensitivity"
	KindAssumptions = "assumptions"
)

// Run is one persisted valuation request and its output
type Run struct {
	ID        string          `json:"id"`
	Ticker    string          `json:"ticker"`
	Kind      string          `json:"kind"`
	Input     json.RawMessage `json:"input"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// Schema for the Postgres backend:
//
//	CREATE TABLE IF NOT EXISTS valuation_runs (
//	  id UUID PRIMARY KEY,
//	  ticker TEXT NOT NULL,
//	  kind TEXT NOT NULL,
//	  input_json JSONB,
//	  result_json JSONB,
//	  created_at TIMESTAMPTZ NOT NULL
//	);
const createRunsTable = `
	CREATE TABLE IF NOT EXISTS valuation_runs (
		id UUID PRIMARY KEY,
		ticker TEXT NOT NULL,
		kind TEXT NOT NULL,
		input_json JSONB,
		result_json JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`

// RunStore persists valuation runs.
// Hybrid Vault: DB when a pool is configured, JSON files otherwise.
type RunStore struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewRunStore creates a run store. With a nil pool and empty dir it defaults to .cache/valuation/runs.
func NewRunStore(pool *pgxpool.Pool, dir string) (*RunStore, error) {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "valuation", "runs")
	}
	if pool == nil {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create run store dir %s: %w", dir, err)
		}
	}
	return &RunStore{pool: pool, fileDir: dir}, nil
}

// Migrate creates the runs table when backed by Postgres
func (s *RunStore) Migrate(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	if _, err := s.pool.Exec(ctx, createRunsTable); err != nil {
		return fmt.Errorf("failed to create valuation_runs: %w", err)
	}
	return nil
}

// Save stores a run, assigning ID and timestamp when missing
func (s *RunStore) Save(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Ticker = strings.ToUpper(run.Ticker)

	if s.pool != nil {
		query := `
			INSERT INTO valuation_runs (id, ticker, kind, input_json, result_json, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id)
			DO UPDATE SET
				input_json = EXCLUDED.input_json,
				result_json = EXCLUDED.result_json
		`
		_, err := s.pool.Exec(ctx, query, run.ID, run.Ticker, run.Kind, []byte(run.Input), []byte(run.Result), run.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := os.WriteFile(s.runPath(run.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	return nil
}

// Get loads a run by ID
func (s *RunStore) Get(ctx context.Context, id string) (*Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrRunNotFound
	}

	if s.pool != nil {
		query := `
			SELECT id, ticker, kind, input_json, result_json, created_at
			FROM valuation_runs
			WHERE id = $1
		`
		run, err := scanRun(s.pool.QueryRow(ctx, query, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load run %s: %w", id, err)
		}
		return run, nil
	}

	return s.loadFromFile(s.runPath(id))
}

// List returns runs for a ticker (all tickers when empty), newest first
func (s *RunStore) List(ctx context.Context, ticker string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	ticker = strings.ToUpper(ticker)

	if s.pool != nil {
		query := `
			SELECT id, ticker, kind, input_json, result_json, created_at
			FROM valuation_runs
			WHERE $1 = '' OR ticker = $1
			ORDER BY created_at DESC
			LIMIT $2
		`
		rows, err := s.pool.Query(ctx, query, ticker, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		defer rows.Close()

		var runs []*Run
		for rows.Next() {
			run, err := scanRun(rows)
			if err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
			runs = append(runs, run)
		}
		return runs, rows.Err()
	}

	files, err := filepath.Glob(filepath.Join(s.fileDir, "*.json"))
	if err != nil {
		return nil, err
	}
	var runs []*Run
	for _, f := range files {
		run, err := s.loadFromFile(f)
		if err != nil {
			continue
		}
		if ticker != "" && run.Ticker != ticker {
			continue
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	var input, result []byte
	if err := row.Scan(&run.ID, &run.Ticker, &run.Kind, &input, &result, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.Input = input
	run.Result = result
	return &run, nil
}

func (s *RunStore) runPath(id string) string {
	return filepath.Join(s.fileDir, id+".json")
}

func (s *RunStore) loadFromFile(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run file: %w", err)
	}
	return &run, nil
}

// Backend reports which storage the store writes to
func (s *RunStore) Backend() string {
	if s.pool != nil {
		return "postgres"
	}
	return "file"
}
