package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/jamsync/internal/models"
	"github.com/desertthunder/jamsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// runView is the serializable shape of one recorded run.
type runView struct {
	RunID         string    `json:"run_id"`
	Policy        string    `json:"policy"`
	Playlist      string    `json:"playlist"`
	Total         int       `json:"total"`
	Added         int       `json:"added"`
	UsersUpdated  int       `json:"users_updated"`
	SkippedReads  int       `json:"skipped_reads"`
	SkippedWrites int       `json:"skipped_writes"`
	StartedAt     time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`
}

func newRunView(run *models.SyncRun) runView {
	return runView{
		RunID:         run.ID(),
		Policy:        run.Policy(),
		Playlist:      run.Playlist(),
		Total:         run.Total(),
		Added:         run.Added(),
		UsersUpdated:  run.UsersUpdated(),
		SkippedReads:  run.SkippedReads(),
		SkippedWrites: run.SkippedWrites(),
		StartedAt:     run.StartedAt(),
		DurationMS:    run.Duration().Milliseconds(),
	}
}

// HistoryList lists recorded runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	policy := cmd.String("policy")
	switch policy {
	case "", models.PolicyRated, models.PolicyShared, models.PolicyBroadcast:
	default:
		return fmt.Errorf("%w: unknown policy %q", shared.ErrInvalidFlag, policy)
	}

	repo, err := r.runRepository()
	if err != nil {
		return err
	}

	runs, err := repo.List(policy, cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if cmd.Bool("json") {
		views := make([]runView, len(runs))
		for i, run := range runs {
			views[i] = newRunView(run)
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		r.writePlain("No recorded runs.\n")
		return nil
	}

	r.writePlainHeader("Sync History")
	for _, run := range runs {
		r.writePlain("%s  %-9s  %-20q  merged %d, added %d, %d replicas\n",
			run.StartedAt().Format("2006-01-02 15:04"),
			run.Policy(), run.Playlist(),
			run.Total(), run.Added(), run.UsersUpdated(),
		)
	}
	r.writePlain("\n%d run(s)\n", len(runs))

	return nil
}

// HistoryShow shows one recorded run.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	runID := cmd.StringArg("run-id")
	if runID == "" {
		return fmt.Errorf("%w: run id is required", shared.ErrMissingArgument)
	}

	repo, err := r.runRepository()
	if err != nil {
		return err
	}

	run, err := repo.Get(runID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(newRunView(run), cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Run %s", run.ID()))
	r.writePlain("Policy: %s\n", run.Policy())
	r.writePlain("Playlist: %q\n", run.Playlist())
	r.writePlain("Started: %s\n", run.StartedAt().Format(time.RFC3339))
	r.writePlain("Duration: %s\n", run.Duration())
	r.writePlain("Merged: %d  Added: %d  Replicas updated: %d\n", run.Total(), run.Added(), run.UsersUpdated())
	if run.SkippedReads() > 0 || run.SkippedWrites() > 0 {
		r.writePlain("Skipped: %d reads, %d writes\n", run.SkippedReads(), run.SkippedWrites())
	}

	return nil
}

// HistoryClear deletes all recorded runs.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.runRepository()
	if err != nil {
		return err
	}

	deleted, err := repo.DeleteAll()
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	r.logger.Info("run history cleared", "deleted", deleted)
	r.writePlain("Deleted %d run(s)\n", deleted)

	return nil
}
