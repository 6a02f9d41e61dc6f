package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ValidationError describes a recorded-run consistency issue.
type ValidationError struct {
	RunID string `json:"run_id"`
	Tick  int    `json:"tick,omitempty"`
	Issue string `json:"issue"` // "gap", "duplicate", "orphan-ticks"
}

// String returns a human-readable description of the validation error.
func (e ValidationError) String() string {
	if e.Tick > 0 {
		return fmt.Sprintf("%s: run %s at tick %d", e.Issue, e.RunID, e.Tick)
	}
	return fmt.Sprintf("%s: run %s", e.Issue, e.RunID)
}

// ValidateIntegrity checks the SQLite database itself for corruption and
// broken foreign keys.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	// Run PRAGMA integrity_check
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("failed to run integrity_check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return fmt.Errorf("failed to scan integrity_check result: %w", err)
		}
		if result != "ok" {
			return fmt.Errorf("integrity_check failed: %s", result)
		}
	}

	// Run PRAGMA foreign_key_check
	fkRows, err := db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return fmt.Errorf("failed to run foreign_key_check: %w", err)
	}
	defer fkRows.Close()

	var fkErrors []string
	for fkRows.Next() {
		var table, rowid, parent, fkid string
		if err := fkRows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("failed to scan foreign_key_check result: %w", err)
		}
		fkErrors = append(fkErrors, fmt.Sprintf("table=%s rowid=%s parent=%s fkid=%s", table, rowid, parent, fkid))
	}

	if len(fkErrors) > 0 {
		return fmt.Errorf("foreign_key_check failed: %v", fkErrors)
	}

	return nil
}

// ValidateRunHistories checks every recorded run for consistent tick
// numbering. Returns validation errors for:
// - Gaps in a run's tick sequence (ticks must be 1..N contiguous)
// - Ticks belonging to no recorded run
func (s *SQLiteRunStore) ValidateRunHistories(ctx context.Context) ([]ValidationError, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errors []ValidationError

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, MIN(tick), MAX(tick), COUNT(*)
		FROM ticks GROUP BY run_id ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tick ranges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var runID string
		var minTick, maxTick, count int
		if err := rows.Scan(&runID, &minTick, &maxTick, &count); err != nil {
			return nil, fmt.Errorf("failed to scan tick range: %w", err)
		}
		if minTick != 1 {
			errors = append(errors, ValidationError{RunID: runID, Tick: minTick, Issue: "gap"})
			continue
		}
		// Primary key rules out duplicates, so a count shortfall is a gap.
		if count != maxTick {
			errors = append(errors, ValidationError{RunID: runID, Tick: maxTick, Issue: "gap"})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Orphan ticks are prevented by the foreign key, but a database built by
	// other tooling may carry them with foreign keys off.
	orphans, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT t.run_id FROM ticks t
		LEFT JOIN runs r ON r.id = t.run_id WHERE r.id IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphan ticks: %w", err)
	}
	defer orphans.Close()

	for orphans.Next() {
		var runID string
		if err := orphans.Scan(&runID); err != nil {
			return nil, fmt.Errorf("failed to scan orphan run id: %w", err)
		}
		errors = append(errors, ValidationError{RunID: runID, Issue: "orphan-ticks"})
	}
	return errors, orphans.Err()
}
