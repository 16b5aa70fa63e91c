package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/jamsync/internal/models"
	"github.com/desertthunder/jamsync/internal/sync"
)

// RunRecorderAdapter implements sync.RunRecorder using RunRepository.
//
// The engine calls it after every invocation; failures here are the
// engine's to log, not to propagate.
type RunRecorderAdapter struct {
	repo *RunRepository
}

// NewRunRecorderAdapter creates a new RunRecorderAdapter with the given repository
func NewRunRecorderAdapter(repo *RunRepository) *RunRecorderAdapter {
	return &RunRecorderAdapter{repo: repo}
}

// RecordRun persists one completed invocation.
func (a *RunRecorderAdapter) RecordRun(ctx context.Context, rec sync.RunRecord) error {
	run := models.NewSyncRun(rec.Policy, rec.Playlist)
	run.SetID(rec.RunID)
	run.SetCounts(rec.Result.Total, rec.Result.Added, rec.Result.UsersUpdated, rec.Result.SkippedReads, rec.Result.SkippedWrites)
	run.SetStartedAt(rec.StartedAt)
	run.SetDuration(rec.Duration)

	if err := a.repo.Create(run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}
