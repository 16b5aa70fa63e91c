package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamsync/internal/catalog"
	"github.com/desertthunder/jamsync/internal/shared"
)

// Policy names, as persisted in run history.
const (
	PolicyRated     = "rated"
	PolicyShared    = "shared"
	PolicyBroadcast = "broadcast"
)

// TrackEntry is one merged track, attributed to the replica whose activity
// placed it in the result.
type TrackEntry struct {
	Title   string    `json:"title"`
	Artist  string    `json:"artist"`
	Replica string    `json:"replica"`
	At      time.Time `json:"at,omitzero"`
}

// SyncResult summarizes one policy invocation. Purely a return value; the
// engine holds no state between invocations.
type SyncResult struct {
	Total         int          `json:"total"`          // Items in the merged set
	Added         int          `json:"added"`          // Items actually written
	UsersUpdated  int          `json:"users_updated"`  // Replicas written successfully
	SkippedReads  int          `json:"skipped_reads"`  // Replicas whose reads failed
	SkippedWrites int          `json:"skipped_writes"` // Replicas whose writes failed
	Tracks        []TrackEntry `json:"tracks,omitempty"`
}

// RunRecord captures one completed invocation for the history store.
type RunRecord struct {
	RunID     string
	Policy    string
	Playlist  string
	Result    SyncResult
	StartedAt time.Time
	Duration  time.Duration
}

// RunRecorder persists completed runs. Recording is best-effort: failures
// are logged and never affect the sync outcome.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// RatedOptions configures the incremental-capped policy.
type RatedOptions struct {
	Contributors []string // Replicas whose ratings are read; also the write targets
	PlaylistName string
	MinRating    float64
	MaxTracks    int // Cap on target playlist length; 0 means uncapped
}

// SharedOptions configures the full-replace policy.
type SharedOptions struct {
	Members      []string // Replicas whose playlists are read; also the write targets
	PlaylistName string
}

// BroadcastOptions configures the broadcast policy.
type BroadcastOptions struct {
	Curators     []string // Replicas whose playlists are read
	PlaylistName string
}

// Syncer defines the reconciliation policies the engine provides.
type Syncer interface {
	// SyncRated merges each contributor's highly rated tracks into one
	// capped, newest-first playlist and appends the missing entries to
	// every contributor's copy.
	SyncRated(ctx context.Context, progress chan<- ProgressUpdate, opts RatedOptions) (*SyncResult, error)

	// SyncShared merges the members' copies of a shared playlist with
	// earliest-add-wins attribution and rewrites every member's copy to
	// the merged contents.
	SyncShared(ctx context.Context, progress chan<- ProgressUpdate, opts SharedOptions) (*SyncResult, error)

	// Broadcast merges the curators' copies of a playlist and rewrites it
	// onto the admin scope and every known replica, contributors or not.
	Broadcast(ctx context.Context, progress chan<- ProgressUpdate, opts BroadcastOptions) (*SyncResult, error)
}

// Engine implements Syncer against a catalog. Replicas are processed
// strictly sequentially; a failed read or write skips that replica and the
// invocation carries on.
type Engine struct {
	cat      catalog.Catalog
	logger   *log.Logger
	recorder RunRecorder
}

// NewEngine creates an Engine. The recorder may be nil, in which case runs
// are not persisted.
func NewEngine(cat catalog.Catalog, logger *log.Logger, recorder RunRecorder) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{cat: cat, logger: logger, recorder: recorder}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// SyncRated runs the incremental-capped policy.
//
// Rerunning with unchanged source data adds nothing: the diff against each
// target's existing keys is empty on the second pass.
func (e *Engine) SyncRated(ctx context.Context, progress chan<- ProgressUpdate, opts RatedOptions) (*SyncResult, error) {
	if err := e.check(opts.PlaylistName); err != nil {
		return nil, err
	}

	started := time.Now()
	result := &SyncResult{}

	var collected []collectedItem
	total := len(opts.Contributors)
	for i, replica := range opts.Contributors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.sendProgress(progress, collectingUpdate(i+1, total, replica))

		scope, err := e.cat.Scope(ctx, replica)
		if err != nil {
			e.logger.Warn("skipping replica read", "replica", replica, "error", err)
			result.SkippedReads++
			continue
		}

		items, err := collectRated(ctx, scope, opts.MinRating)
		if err != nil {
			e.logger.Warn("skipping replica read", "replica", replica, "error", err)
			result.SkippedReads++
			continue
		}

		collected = append(collected, items...)
	}

	merged := mergeLatestRated(collected, opts.MaxTracks)
	e.sendProgress(progress, mergedUpdate(len(merged)))
	if len(merged) == 0 {
		return result, nil
	}

	result.Total = len(merged)
	result.Tracks = trackEntries(merged)

	for i, replica := range opts.Contributors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.sendProgress(progress, writingUpdate(i+1, total, replica))

		scope, err := e.cat.Scope(ctx, replica)
		if err != nil {
			e.skipWrite(progress, result, i+1, total, replica, err)
			continue
		}

		added, err := e.applyIncremental(ctx, scope, opts.PlaylistName, merged, opts.MaxTracks)
		if err != nil {
			e.skipWrite(progress, result, i+1, total, replica, err)
			continue
		}

		result.Added += added
		result.UsersUpdated++
		e.sendProgress(progress, writeDoneUpdate(i+1, total, replica, added))
	}

	e.record(ctx, PolicyRated, opts.PlaylistName, result, started)
	return result, nil
}

// SyncShared runs the full-replace policy. Every member converges to
// identical playlist contents after one pass; Added mirrors Total because
// unchanged items are rewritten too.
func (e *Engine) SyncShared(ctx context.Context, progress chan<- ProgressUpdate, opts SharedOptions) (*SyncResult, error) {
	if err := e.check(opts.PlaylistName); err != nil {
		return nil, err
	}

	started := time.Now()
	result := &SyncResult{}

	collected := e.collectFromReplicas(ctx, progress, result, opts.Members, opts.PlaylistName)

	merged := mergeEarliestAdded(collected)
	e.sendProgress(progress, mergedUpdate(len(merged)))
	if len(merged) == 0 {
		return result, nil
	}

	result.Total = len(merged)
	result.Tracks = trackEntries(merged)

	e.writeFullReplace(ctx, progress, result, opts.Members, opts.PlaylistName, merged, 0, len(opts.Members))
	result.Added = result.Total

	e.record(ctx, PolicyShared, opts.PlaylistName, result, started)
	return result, nil
}

// Broadcast runs the broadcast policy: read curators, write everyone.
//
// UsersUpdated counts the admin scope alongside the replicas, so it can
// exceed the number of curators read.
func (e *Engine) Broadcast(ctx context.Context, progress chan<- ProgressUpdate, opts BroadcastOptions) (*SyncResult, error) {
	if err := e.check(opts.PlaylistName); err != nil {
		return nil, err
	}

	started := time.Now()
	result := &SyncResult{}

	// Targets are resolved up front: if membership cannot be listed there
	// is nothing meaningful to broadcast to.
	replicas, err := e.cat.Replicas(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list replicas: %w", err)
	}

	collected := e.collectFromReplicas(ctx, progress, result, opts.Curators, opts.PlaylistName)

	merged := mergeEarliestAdded(collected)
	e.sendProgress(progress, mergedUpdate(len(merged)))
	if len(merged) == 0 {
		return result, nil
	}

	result.Total = len(merged)
	result.Tracks = trackEntries(merged)
	items := mergedItems(merged)

	total := len(replicas) + 1
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.sendProgress(progress, writingUpdate(1, total, "admin"))
	admin, err := e.cat.AdminScope(ctx)
	if err != nil {
		e.skipWrite(progress, result, 1, total, "admin", err)
	} else if err := e.applyFullReplace(ctx, admin, opts.PlaylistName, items); err != nil {
		e.skipWrite(progress, result, 1, total, admin.ReplicaID(), err)
	} else {
		result.UsersUpdated++
		e.sendProgress(progress, writeDoneUpdate(1, total, admin.ReplicaID(), len(items)))
	}

	e.writeFullReplace(ctx, progress, result, replicas, opts.PlaylistName, merged, 1, total)
	result.Added = result.Total

	e.record(ctx, PolicyBroadcast, opts.PlaylistName, result, started)
	return result, nil
}

func (e *Engine) check(playlistName string) error {
	if e.cat == nil {
		return fmt.Errorf("%w: catalog not initialized", shared.ErrCatalogUnavailable)
	}
	if playlistName == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	return nil
}

// collectFromReplicas reads the named playlist from each replica, logging
// and counting failures instead of propagating them.
func (e *Engine) collectFromReplicas(ctx context.Context, progress chan<- ProgressUpdate, result *SyncResult, replicas []string, name string) []collectedItem {
	var collected []collectedItem
	total := len(replicas)

	for i, replica := range replicas {
		if ctx.Err() != nil {
			return collected
		}
		e.sendProgress(progress, collectingUpdate(i+1, total, replica))

		scope, err := e.cat.Scope(ctx, replica)
		if err != nil {
			e.logger.Warn("skipping replica read", "replica", replica, "error", err)
			result.SkippedReads++
			continue
		}

		items, err := collectMembers(ctx, scope, name)
		if err != nil {
			e.logger.Warn("skipping replica read", "replica", replica, "error", err)
			result.SkippedReads++
			continue
		}

		collected = append(collected, items...)
	}

	return collected
}

// writeFullReplace rewrites the merged set onto each replica, isolating
// per-replica failures. Steps run from offset+1 against total, keeping the
// count continuous for callers that write other scopes first.
func (e *Engine) writeFullReplace(ctx context.Context, progress chan<- ProgressUpdate, result *SyncResult, replicas []string, name string, merged []collectedItem, offset, total int) {
	items := mergedItems(merged)

	for i, replica := range replicas {
		if ctx.Err() != nil {
			return
		}
		step := offset + i + 1
		e.sendProgress(progress, writingUpdate(step, total, replica))

		scope, err := e.cat.Scope(ctx, replica)
		if err != nil {
			e.skipWrite(progress, result, step, total, replica, err)
			continue
		}

		if err := e.applyFullReplace(ctx, scope, name, items); err != nil {
			e.skipWrite(progress, result, step, total, replica, err)
			continue
		}

		result.UsersUpdated++
		e.sendProgress(progress, writeDoneUpdate(step, total, replica, len(items)))
	}
}

// applyIncremental appends the merged entries missing from the target
// playlist and truncates anything past the cap boundary. Returns the number
// of items appended.
func (e *Engine) applyIncremental(ctx context.Context, scope catalog.ScopedCatalog, name string, merged []collectedItem, max int) (int, error) {
	items := mergedItems(merged)

	handle, err := scope.FindPlaylist(ctx, name)
	if err != nil {
		return 0, err
	}
	if handle == nil {
		if _, err := scope.CreatePlaylist(ctx, name, items); err != nil {
			return 0, err
		}
		return len(items), nil
	}

	existing, err := handle.Items(ctx)
	if err != nil {
		return 0, err
	}

	existingKeys := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		existingKeys[item.Key] = struct{}{}
	}

	var toAdd []catalog.Item
	for _, item := range items {
		if _, found := existingKeys[item.Key]; !found {
			toAdd = append(toAdd, item)
		}
	}

	if len(toAdd) == 0 {
		return 0, nil
	}

	if err := handle.AddItems(ctx, toAdd); err != nil {
		return 0, err
	}

	if max > 0 && len(existing)+len(toAdd) > max {
		current, err := handle.Items(ctx)
		if err != nil {
			return len(toAdd), err
		}
		if len(current) > max {
			if err := handle.RemoveItems(ctx, current[max:]); err != nil {
				return len(toAdd), err
			}
		}
	}

	return len(toAdd), nil
}

// applyFullReplace makes the target playlist equal the merged items, either
// by creating it or by emptying and refilling it.
func (e *Engine) applyFullReplace(ctx context.Context, scope catalog.ScopedCatalog, name string, items []catalog.Item) error {
	handle, err := scope.FindPlaylist(ctx, name)
	if err != nil {
		return err
	}
	if handle == nil {
		_, err := scope.CreatePlaylist(ctx, name, items)
		return err
	}

	existing, err := handle.Items(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		if err := handle.RemoveItems(ctx, existing); err != nil {
			return err
		}
	}

	return handle.AddItems(ctx, items)
}

func (e *Engine) skipWrite(progress chan<- ProgressUpdate, result *SyncResult, step, total int, replica string, err error) {
	e.logger.Warn("skipping replica write", "replica", replica, "error", err)
	result.SkippedWrites++
	e.sendProgress(progress, writeFailedUpdate(step, total, replica, err))
}

// record persists the run when a recorder is configured. Best-effort only.
func (e *Engine) record(ctx context.Context, policy, playlist string, result *SyncResult, started time.Time) {
	if e.recorder == nil {
		return
	}

	rec := RunRecord{
		RunID:     shared.GenerateID(),
		Policy:    policy,
		Playlist:  playlist,
		Result:    *result,
		StartedAt: started,
		Duration:  time.Since(started),
	}

	if err := e.recorder.RecordRun(ctx, rec); err != nil {
		e.logger.Warn("failed to record sync run", "run_id", rec.RunID, "error", err)
	}
}

func mergedItems(merged []collectedItem) []catalog.Item {
	items := make([]catalog.Item, 0, len(merged))
	for _, c := range merged {
		items = append(items, c.item)
	}
	return items
}

func trackEntries(merged []collectedItem) []TrackEntry {
	entries := make([]TrackEntry, 0, len(merged))
	for _, c := range merged {
		entry := TrackEntry{
			Title:   c.item.Title,
			Artist:  c.item.Artist,
			Replica: c.replica,
		}
		if c.at != nil {
			entry.At = *c.at
		}
		entries = append(entries, entry)
	}
	return entries
}
