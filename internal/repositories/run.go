package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/jamsync/internal/models"
	"github.com/desertthunder/jamsync/internal/shared"
)

// RunRepository persists [models.SyncRun] records.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new [RunRepository] with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a completed run. A missing ID is generated.
func (r *RunRepository) Create(run *models.SyncRun) error {
	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_runs (run_id, policy, playlist, total, added, users_updated, skipped_reads, skipped_writes, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID(), run.Policy(), run.Playlist(),
		run.Total(), run.Added(), run.UsersUpdated(),
		run.SkippedReads(), run.SkippedWrites(),
		run.StartedAt(), run.Duration().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// Get retrieves a run by its run id.
func (r *RunRepository) Get(runID string) (*models.SyncRun, error) {
	query := `
		SELECT run_id, policy, playlist, total, added, users_updated, skipped_reads, skipped_writes, started_at, duration_ms, created_at
		FROM sync_runs
		WHERE run_id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sync run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync run: %w", err)
	}

	return run, nil
}

// List retrieves runs newest first, optionally filtered by policy. A limit
// of 0 returns everything.
func (r *RunRepository) List(policy string, limit int) ([]*models.SyncRun, error) {
	query := `
		SELECT run_id, policy, playlist, total, added, users_updated, skipped_reads, skipped_writes, started_at, duration_ms, created_at
		FROM sync_runs
	`
	var args []any
	if policy != "" {
		query += " WHERE policy = ?"
		args = append(args, policy)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync runs: %w", err)
	}

	return runs, nil
}

// DeleteAll clears the run history and returns the number of rows removed.
func (r *RunRepository) DeleteAll() (int64, error) {
	result, err := r.db.Exec("DELETE FROM sync_runs")
	if err != nil {
		return 0, fmt.Errorf("failed to clear sync runs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.SyncRun, error) {
	var (
		runID, policy, playlist                        string
		total, added, usersUpdated, skippedR, skippedW int
		durationMS                                     int64
		startedAt, createdAt                           time.Time
	)

	err := s.Scan(&runID, &policy, &playlist, &total, &added, &usersUpdated, &skippedR, &skippedW, &startedAt, &durationMS, &createdAt)
	if err != nil {
		return nil, err
	}

	run := models.NewSyncRun(policy, playlist)
	run.SetID(runID)
	run.SetCounts(total, added, usersUpdated, skippedR, skippedW)
	run.SetStartedAt(startedAt)
	run.SetDuration(time.Duration(durationMS) * time.Millisecond)
	run.SetCreatedAt(createdAt)

	return run, nil
}
