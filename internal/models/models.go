package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Valid policy names for a SyncRun.
const (
	PolicyRated     = "rated"
	PolicyShared    = "shared"
	PolicyBroadcast = "broadcast"
)

// SyncRun records one completed engine invocation.
type SyncRun struct {
	id            string
	policy        string
	playlist      string
	total         int
	added         int
	usersUpdated  int
	skippedReads  int
	skippedWrites int
	startedAt     time.Time
	duration      time.Duration
	createdAt     time.Time
}

// NewSyncRun creates a SyncRun for the given policy and playlist. Counts
// and timings are filled in via setters once the invocation finishes.
func NewSyncRun(policy, playlist string) *SyncRun {
	now := time.Now()
	return &SyncRun{
		policy:    policy,
		playlist:  playlist,
		startedAt: now,
		createdAt: now,
	}
}

func (r *SyncRun) ID() string              { return r.id }
func (r *SyncRun) Policy() string          { return r.policy }
func (r *SyncRun) Playlist() string        { return r.playlist }
func (r *SyncRun) Total() int              { return r.total }
func (r *SyncRun) Added() int              { return r.added }
func (r *SyncRun) UsersUpdated() int       { return r.usersUpdated }
func (r *SyncRun) SkippedReads() int       { return r.skippedReads }
func (r *SyncRun) SkippedWrites() int      { return r.skippedWrites }
func (r *SyncRun) StartedAt() time.Time    { return r.startedAt }
func (r *SyncRun) Duration() time.Duration { return r.duration }
func (r *SyncRun) CreatedAt() time.Time    { return r.createdAt }

func (r *SyncRun) SetID(id string)             { r.id = id }
func (r *SyncRun) SetStartedAt(t time.Time)    { r.startedAt = t }
func (r *SyncRun) SetDuration(d time.Duration) { r.duration = d }
func (r *SyncRun) SetCreatedAt(t time.Time)    { r.createdAt = t }

// SetCounts records the result counters of the invocation.
func (r *SyncRun) SetCounts(total, added, usersUpdated, skippedReads, skippedWrites int) {
	r.total = total
	r.added = added
	r.usersUpdated = usersUpdated
	r.skippedReads = skippedReads
	r.skippedWrites = skippedWrites
}

// Validate checks that the run names a known policy and a playlist, and
// that no counter is negative.
func (r *SyncRun) Validate() error {
	switch r.policy {
	case PolicyRated, PolicyShared, PolicyBroadcast:
	default:
		return fmt.Errorf("unknown policy: %q", r.policy)
	}

	if r.playlist == "" {
		return fmt.Errorf("playlist is required")
	}

	for _, n := range []int{r.total, r.added, r.usersUpdated, r.skippedReads, r.skippedWrites} {
		if n < 0 {
			return fmt.Errorf("counters must be non-negative")
		}
	}

	return nil
}
