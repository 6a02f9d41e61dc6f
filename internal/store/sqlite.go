package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/tick-loop/internal/snapshot"
)

// SQLiteRunStore implements RunStore using SQLite for persistence.
// Runs and their tick histories are stored at .tickloop/runs.db.
type SQLiteRunStore struct {
	mu          sync.RWMutex
	db          *sql.DB
	tickloopDir string
	dbPath      string
}

// NewSQLiteRunStore creates a new SQLiteRunStore rooted at projectRoot.
// It creates the database at .tickloop/runs.db.
func NewSQLiteRunStore(projectRoot string) (*SQLiteRunStore, error) {
	tickloopDir := LocalTickloopPath(projectRoot)

	// Ensure .tickloop directory exists
	if err := os.MkdirAll(tickloopDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .tickloop directory: %w", err)
	}

	dbPath := filepath.Join(tickloopDir, "runs.db")

	// Open database
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	// Initialize schema
	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{
		db:          db,
		tickloopDir: tickloopDir,
		dbPath:      dbPath,
	}, nil
}

// CreateRun records a new run.
func (s *SQLiteRunStore) CreateRun(ctx context.Context, meta RunMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if meta.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, created_at, tick_budget, config) VALUES (?, ?, ?, ?, ?)`,
		meta.ID, meta.Name, meta.CreatedAt.Format(time.RFC3339Nano), meta.TickBudget, string(meta.Config))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", meta.ID, err)
	}
	return nil
}

// GetRun retrieves run metadata by ID. Returns nil if not found.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*RunMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.name, r.created_at, r.tick_budget, r.config,
		       (SELECT COUNT(*) FROM ticks t WHERE t.run_id = r.id)
		FROM runs r WHERE r.id = ?`, id)

	meta, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return meta, nil
}

// ListRuns returns all runs ordered by creation time.
func (s *SQLiteRunStore) ListRuns(ctx context.Context) ([]RunMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.created_at, r.tick_budget, r.config,
		       (SELECT COUNT(*) FROM ticks t WHERE t.run_id = r.id)
		FROM runs r ORDER BY r.created_at, r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunMeta
	for rows.Next() {
		meta, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, *meta)
	}
	return out, rows.Err()
}

// DeleteRun removes a run; its ticks cascade.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// AppendTick appends one tick snapshot to a run's history. Ticks must arrive
// in order without gaps.
func (s *SQLiteRunStore) AppendTick(ctx context.Context, runID string, snap snapshot.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ticks WHERE run_id = ?`, runID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count ticks for run %s: %w", runID, err)
	}
	if want := count + 1; snap.Tick != want {
		return fmt.Errorf("out-of-order tick %d for run %s, want %d", snap.Tick, runID, want)
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal tick %d: %w", snap.Tick, err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO ticks (run_id, tick, payload) VALUES (?, ?, ?)`,
		runID, snap.Tick, string(payload)); err != nil {
		return fmt.Errorf("failed to insert tick %d for run %s: %w", snap.Tick, runID, err)
	}
	return nil
}

// GetTick retrieves one tick snapshot. Returns nil if not recorded.
func (s *SQLiteRunStore) GetTick(ctx context.Context, runID string, tick int) (*snapshot.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM ticks WHERE run_id = ? AND tick = ?`, runID, tick).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tick %d for run %s: %w", tick, runID, err)
	}

	var snap snapshot.Tick
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tick %d for run %s: %w", tick, runID, err)
	}
	return &snap, nil
}

// GetTicks returns a run's full tick history in order.
func (s *SQLiteRunStore) GetTicks(ctx context.Context, runID string) ([]snapshot.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM ticks WHERE run_id = ? ORDER BY tick`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticks for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []snapshot.Tick
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan tick: %w", err)
		}
		var snap snapshot.Tick
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tick: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Sync forces a WAL checkpoint so the main database file is current.
func (s *SQLiteRunStore) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunMeta, error) {
	var meta RunMeta
	var createdAt, config string
	if err := row.Scan(&meta.ID, &meta.Name, &createdAt, &meta.TickBudget, &config, &meta.TickCount); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	meta.CreatedAt = t
	if config != "" {
		meta.Config = json.RawMessage(config)
	}
	return &meta, nil
}
