package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/jamsync/internal/catalog"
	"github.com/desertthunder/jamsync/internal/shared"
)

type fakePlaylist struct {
	name      string
	items     []catalog.Item
	itemsErr  error
	addErr    error
	removeErr error
}

func (p *fakePlaylist) Name() string { return p.name }

func (p *fakePlaylist) Items(ctx context.Context) ([]catalog.Item, error) {
	if p.itemsErr != nil {
		return nil, p.itemsErr
	}
	items := make([]catalog.Item, len(p.items))
	copy(items, p.items)
	return items, nil
}

func (p *fakePlaylist) AddItems(ctx context.Context, items []catalog.Item) error {
	if p.addErr != nil {
		return p.addErr
	}
	p.items = append(p.items, items...)
	return nil
}

func (p *fakePlaylist) RemoveItems(ctx context.Context, items []catalog.Item) error {
	if p.removeErr != nil {
		return p.removeErr
	}
	drop := make(map[string]struct{}, len(items))
	for _, item := range items {
		drop[item.Key] = struct{}{}
	}
	var kept []catalog.Item
	for _, item := range p.items {
		if _, found := drop[item.Key]; !found {
			kept = append(kept, item)
		}
	}
	p.items = kept
	return nil
}

type fakeScope struct {
	id        string
	rated     []catalog.Item
	ratedErr  error
	playlists map[string]*fakePlaylist
	findErr   error
	createErr error
}

func newFakeScope(id string) *fakeScope {
	return &fakeScope{id: id, playlists: map[string]*fakePlaylist{}}
}

func (s *fakeScope) ReplicaID() string { return s.id }

func (s *fakeScope) FindPlaylist(ctx context.Context, name string) (catalog.PlaylistHandle, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if pl, found := s.playlists[name]; found {
		return pl, nil
	}
	return nil, nil
}

func (s *fakeScope) CreatePlaylist(ctx context.Context, name string, items []catalog.Item) (catalog.PlaylistHandle, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	pl := &fakePlaylist{name: name, items: append([]catalog.Item(nil), items...)}
	s.playlists[name] = pl
	return pl, nil
}

func (s *fakeScope) SearchByRating(ctx context.Context, sectionType string, minRating float64) ([]catalog.Item, error) {
	if s.ratedErr != nil {
		return nil, s.ratedErr
	}
	return s.rated, nil
}

func (s *fakeScope) SearchTrack(ctx context.Context, query string) (*catalog.Item, error) {
	return nil, nil
}

type fakeCatalog struct {
	scopes      map[string]*fakeScope
	admin       *fakeScope
	replicas    []string
	replicasErr error
	scopeErr    map[string]error
}

func newFakeCatalog(scopes ...*fakeScope) *fakeCatalog {
	cat := &fakeCatalog{scopes: map[string]*fakeScope{}, scopeErr: map[string]error{}}
	for _, s := range scopes {
		cat.scopes[s.id] = s
	}
	return cat
}

func (c *fakeCatalog) Scope(ctx context.Context, replicaID string) (catalog.ScopedCatalog, error) {
	if err, found := c.scopeErr[replicaID]; found {
		return nil, err
	}
	if s, found := c.scopes[replicaID]; found {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrScopeUnavailable, replicaID)
}

func (c *fakeCatalog) AdminScope(ctx context.Context) (catalog.ScopedCatalog, error) {
	if c.admin == nil {
		return nil, shared.ErrMissingCredentials
	}
	return c.admin, nil
}

func (c *fakeCatalog) Replicas(ctx context.Context) ([]string, error) {
	if c.replicasErr != nil {
		return nil, c.replicasErr
	}
	return c.replicas, nil
}

func (c *fakeCatalog) ServerInfo(ctx context.Context) (*catalog.ServerInfo, error) {
	return &catalog.ServerInfo{Name: "fake"}, nil
}

type fakeRecorder struct {
	records []RunRecord
	err     error
}

func (r *fakeRecorder) RecordRun(ctx context.Context, rec RunRecord) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func ratedItem(key string, at *time.Time) catalog.Item {
	return catalog.Item{Key: key, Title: "Track " + key, Artist: "Artist " + key, RatedAt: at}
}

func addedItem(key string, at *time.Time) catalog.Item {
	return catalog.Item{Key: key, Title: "Track " + key, Artist: "Artist " + key, AddedAt: at}
}

func testEngine(cat catalog.Catalog, recorder RunRecorder) *Engine {
	return NewEngine(cat, shared.NewLogger(io.Discard), recorder)
}

func TestEngine_SyncRated(t *testing.T) {
	opts := RatedOptions{
		Contributors: []string{"A", "B", "C"},
		PlaylistName: "Heavy Rotation",
		MinRating:    10,
		MaxTracks:    50,
	}

	t.Run("Merges And Fans Out", func(t *testing.T) {
		a := newFakeScope("A")
		a.rated = []catalog.Item{ratedItem("T1", day(1)), ratedItem("T2", day(3))}
		b := newFakeScope("B")
		b.rated = []catalog.Item{ratedItem("T2", day(2)), ratedItem("T3", day(5))}
		c := newFakeScope("C")
		cat := newFakeCatalog(a, b, c)

		result, err := testEngine(cat, nil).SyncRated(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("SyncRated() error = %v", err)
		}

		if result.Total != 3 {
			t.Errorf("expected total 3, got %d", result.Total)
		}
		if result.Added != 9 {
			t.Errorf("expected 9 additions across 3 replicas, got %d", result.Added)
		}
		if result.UsersUpdated != 3 {
			t.Errorf("expected 3 replicas updated, got %d", result.UsersUpdated)
		}

		wantOrder := []string{"T3", "T2", "T1"}
		for i, want := range wantOrder {
			if result.Tracks[i].Title != "Track "+want {
				t.Errorf("position %d: expected %s, got %s", i, want, result.Tracks[i].Title)
			}
		}
		if result.Tracks[1].Replica != "A" {
			t.Errorf("expected T2 attributed to A (later rating), got %s", result.Tracks[1].Replica)
		}

		for _, scope := range []*fakeScope{a, b, c} {
			pl := scope.playlists["Heavy Rotation"]
			if pl == nil {
				t.Fatalf("expected playlist created for %s", scope.id)
			}
			if len(pl.items) != 3 {
				t.Errorf("expected 3 items for %s, got %d", scope.id, len(pl.items))
			}
		}
	})

	t.Run("Second Run Adds Nothing", func(t *testing.T) {
		a := newFakeScope("A")
		a.rated = []catalog.Item{ratedItem("T1", day(1)), ratedItem("T2", day(3))}
		b := newFakeScope("B")
		cat := newFakeCatalog(a, b)
		engine := testEngine(cat, nil)

		localOpts := opts
		localOpts.Contributors = []string{"A", "B"}

		first, err := engine.SyncRated(context.Background(), nil, localOpts)
		if err != nil {
			t.Fatalf("first SyncRated() error = %v", err)
		}
		if first.Added == 0 {
			t.Fatal("expected first run to add items")
		}

		second, err := engine.SyncRated(context.Background(), nil, localOpts)
		if err != nil {
			t.Fatalf("second SyncRated() error = %v", err)
		}
		if second.Added != 0 {
			t.Errorf("expected second run to add 0 items, got %d", second.Added)
		}
		if second.Total != first.Total {
			t.Errorf("expected stable total, got %d then %d", first.Total, second.Total)
		}
	})

	t.Run("Cap Truncates Playlist Tail", func(t *testing.T) {
		a := newFakeScope("A")
		a.rated = []catalog.Item{ratedItem("N1", day(8)), ratedItem("N2", day(9))}
		a.playlists["Heavy Rotation"] = &fakePlaylist{
			name:  "Heavy Rotation",
			items: []catalog.Item{{Key: "E1"}, {Key: "E2"}},
		}
		cat := newFakeCatalog(a)

		localOpts := opts
		localOpts.Contributors = []string{"A"}
		localOpts.MaxTracks = 3

		result, err := testEngine(cat, nil).SyncRated(context.Background(), nil, localOpts)
		if err != nil {
			t.Fatalf("SyncRated() error = %v", err)
		}

		if result.Added != 2 {
			t.Errorf("expected 2 additions, got %d", result.Added)
		}
		if got := len(a.playlists["Heavy Rotation"].items); got != 3 {
			t.Errorf("expected playlist capped at 3, got %d", got)
		}
	})

	t.Run("Unrated Items Are Excluded", func(t *testing.T) {
		a := newFakeScope("A")
		a.rated = []catalog.Item{ratedItem("T1", day(1)), ratedItem("T9", nil)}
		cat := newFakeCatalog(a)

		localOpts := opts
		localOpts.Contributors = []string{"A"}

		result, err := testEngine(cat, nil).SyncRated(context.Background(), nil, localOpts)
		if err != nil {
			t.Fatalf("SyncRated() error = %v", err)
		}
		if result.Total != 1 {
			t.Errorf("expected 1 merged item, got %d", result.Total)
		}
	})

	t.Run("Failed Read Is Skipped", func(t *testing.T) {
		a := newFakeScope("A")
		a.rated = []catalog.Item{ratedItem("T1", day(1))}
		b := newFakeScope("B")
		b.ratedErr = errors.New("replica offline")
		cat := newFakeCatalog(a, b)

		localOpts := opts
		localOpts.Contributors = []string{"A", "B"}

		result, err := testEngine(cat, nil).SyncRated(context.Background(), nil, localOpts)
		if err != nil {
			t.Fatalf("SyncRated() error = %v", err)
		}
		if result.SkippedReads != 1 {
			t.Errorf("expected 1 skipped read, got %d", result.SkippedReads)
		}
		if result.Total != 1 {
			t.Errorf("expected merge from the healthy replica, got total %d", result.Total)
		}
	})

	t.Run("Empty Merge Is A Zero Result", func(t *testing.T) {
		cat := newFakeCatalog(newFakeScope("A"))

		localOpts := opts
		localOpts.Contributors = []string{"A"}

		result, err := testEngine(cat, nil).SyncRated(context.Background(), nil, localOpts)
		if err != nil {
			t.Fatalf("SyncRated() error = %v", err)
		}
		if result.Total != 0 || result.Added != 0 || len(result.Tracks) != 0 {
			t.Errorf("expected zero result, got %+v", result)
		}
	})

	t.Run("Canceled Context Aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		cat := newFakeCatalog(newFakeScope("A"))
		_, err := testEngine(cat, nil).SyncRated(ctx, nil, opts)
		if err == nil {
			t.Error("expected error for canceled context")
		}
	})

	t.Run("Records Run", func(t *testing.T) {
		a := newFakeScope("A")
		a.rated = []catalog.Item{ratedItem("T1", day(1))}
		cat := newFakeCatalog(a)
		recorder := &fakeRecorder{}

		localOpts := opts
		localOpts.Contributors = []string{"A"}

		if _, err := testEngine(cat, recorder).SyncRated(context.Background(), nil, localOpts); err != nil {
			t.Fatalf("SyncRated() error = %v", err)
		}

		if len(recorder.records) != 1 {
			t.Fatalf("expected 1 recorded run, got %d", len(recorder.records))
		}
		rec := recorder.records[0]
		if rec.Policy != PolicyRated {
			t.Errorf("expected policy %s, got %s", PolicyRated, rec.Policy)
		}
		if rec.RunID == "" {
			t.Error("expected a run id")
		}
		if rec.Result.Total != 1 {
			t.Errorf("expected recorded total 1, got %d", rec.Result.Total)
		}
	})

	t.Run("Recorder Failure Does Not Fail The Run", func(t *testing.T) {
		a := newFakeScope("A")
		a.rated = []catalog.Item{ratedItem("T1", day(1))}
		cat := newFakeCatalog(a)
		recorder := &fakeRecorder{err: errors.New("disk full")}

		localOpts := opts
		localOpts.Contributors = []string{"A"}

		if _, err := testEngine(cat, recorder).SyncRated(context.Background(), nil, localOpts); err != nil {
			t.Errorf("expected run to succeed despite recorder failure, got %v", err)
		}
	})
}

func TestEngine_SyncShared(t *testing.T) {
	opts := SharedOptions{Members: []string{"A", "B"}, PlaylistName: "Shared Jams"}

	t.Run("Members Converge On Merged Contents", func(t *testing.T) {
		a := newFakeScope("A")
		a.playlists["Shared Jams"] = &fakePlaylist{
			name:  "Shared Jams",
			items: []catalog.Item{addedItem("X", day(1)), addedItem("Y", day(4))},
		}
		b := newFakeScope("B")
		b.playlists["Shared Jams"] = &fakePlaylist{
			name:  "Shared Jams",
			items: []catalog.Item{addedItem("X", day(2)), addedItem("Z", day(3))},
		}
		cat := newFakeCatalog(a, b)

		result, err := testEngine(cat, nil).SyncShared(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("SyncShared() error = %v", err)
		}

		if result.Total != 3 {
			t.Errorf("expected total 3, got %d", result.Total)
		}
		if result.Added != result.Total {
			t.Errorf("full replace should report added == total, got %d and %d", result.Added, result.Total)
		}
		if result.UsersUpdated != 2 {
			t.Errorf("expected 2 members updated, got %d", result.UsersUpdated)
		}

		for _, entry := range result.Tracks {
			if entry.Title == "Track X" && entry.Replica != "A" {
				t.Errorf("expected X attributed to its earliest adder A, got %s", entry.Replica)
			}
		}

		for _, scope := range []*fakeScope{a, b} {
			if got := len(scope.playlists["Shared Jams"].items); got != 3 {
				t.Errorf("expected %s to hold 3 items, got %d", scope.id, got)
			}
		}
	})

	t.Run("Member Without Playlist Contributes Nothing", func(t *testing.T) {
		a := newFakeScope("A")
		a.playlists["Shared Jams"] = &fakePlaylist{
			name:  "Shared Jams",
			items: []catalog.Item{addedItem("X", day(1))},
		}
		b := newFakeScope("B")
		cat := newFakeCatalog(a, b)

		result, err := testEngine(cat, nil).SyncShared(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("SyncShared() error = %v", err)
		}

		if result.SkippedReads != 0 {
			t.Errorf("missing playlist is not a failed read, got %d skips", result.SkippedReads)
		}
		if b.playlists["Shared Jams"] == nil {
			t.Fatal("expected playlist created for B")
		}
		if got := len(b.playlists["Shared Jams"].items); got != 1 {
			t.Errorf("expected 1 item for B, got %d", got)
		}
	})

	t.Run("Write Failure Does Not Stop Later Members", func(t *testing.T) {
		a := newFakeScope("A")
		a.playlists["Shared Jams"] = &fakePlaylist{
			name:  "Shared Jams",
			items: []catalog.Item{addedItem("X", day(1))},
		}
		b := newFakeScope("B")
		b.createErr = errors.New("quota exceeded")
		c := newFakeScope("C")
		cat := newFakeCatalog(a, b, c)

		localOpts := opts
		localOpts.Members = []string{"A", "B", "C"}

		result, err := testEngine(cat, nil).SyncShared(context.Background(), nil, localOpts)
		if err != nil {
			t.Fatalf("SyncShared() error = %v", err)
		}

		if result.SkippedWrites != 1 {
			t.Errorf("expected 1 skipped write, got %d", result.SkippedWrites)
		}
		if result.UsersUpdated != 2 {
			t.Errorf("expected A and C updated, got %d", result.UsersUpdated)
		}
		if c.playlists["Shared Jams"] == nil {
			t.Error("expected C to receive the write after B failed")
		}
	})

	t.Run("All Members Empty Is A Zero Result", func(t *testing.T) {
		cat := newFakeCatalog(newFakeScope("A"), newFakeScope("B"))

		result, err := testEngine(cat, nil).SyncShared(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("SyncShared() error = %v", err)
		}
		if result.Total != 0 || result.UsersUpdated != 0 {
			t.Errorf("expected zero result, got %+v", result)
		}
	})
}

func TestEngine_Broadcast(t *testing.T) {
	opts := BroadcastOptions{Curators: []string{"A", "B"}, PlaylistName: "Staff Picks"}

	t.Run("Writes To Admin And Every Replica", func(t *testing.T) {
		a := newFakeScope("A")
		a.playlists["Staff Picks"] = &fakePlaylist{
			name:  "Staff Picks",
			items: []catalog.Item{addedItem("T1", day(1))},
		}
		b := newFakeScope("B")
		b.playlists["Staff Picks"] = &fakePlaylist{
			name:  "Staff Picks",
			items: []catalog.Item{addedItem("T2", day(2))},
		}
		c := newFakeScope("C")
		d := newFakeScope("D")

		cat := newFakeCatalog(a, b, c, d)
		cat.admin = a
		cat.replicas = []string{"B", "C", "D"}

		result, err := testEngine(cat, nil).Broadcast(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("Broadcast() error = %v", err)
		}

		if result.Total != 2 {
			t.Errorf("expected total 2, got %d", result.Total)
		}
		if result.UsersUpdated != 4 {
			t.Errorf("expected 4 replicas updated (admin + 3), got %d", result.UsersUpdated)
		}

		// C and D never contributed but still converge.
		for _, scope := range []*fakeScope{c, d} {
			pl := scope.playlists["Staff Picks"]
			if pl == nil {
				t.Fatalf("expected playlist created for %s", scope.id)
			}
			if len(pl.items) != 2 {
				t.Errorf("expected 2 items for %s, got %d", scope.id, len(pl.items))
			}
		}
	})

	t.Run("Write Steps Are Numbered Continuously", func(t *testing.T) {
		a := newFakeScope("A")
		a.playlists["Staff Picks"] = &fakePlaylist{
			name:  "Staff Picks",
			items: []catalog.Item{addedItem("T1", day(1))},
		}
		b := newFakeScope("B")
		c := newFakeScope("C")
		d := newFakeScope("D")

		cat := newFakeCatalog(a, b, c, d)
		cat.admin = a
		cat.replicas = []string{"B", "C", "D"}

		progress := make(chan ProgressUpdate, 50)
		localOpts := opts
		localOpts.Curators = []string{"A"}

		if _, err := testEngine(cat, nil).Broadcast(context.Background(), progress, localOpts); err != nil {
			t.Fatalf("Broadcast() error = %v", err)
		}
		close(progress)

		var steps []string
		for update := range progress {
			if update.Phase == Write && strings.Contains(update.Message, "Writing playlist") {
				steps = append(steps, fmt.Sprintf("[%d/%d]", update.Step, update.Total))
			}
		}

		want := []string{"[1/4]", "[2/4]", "[3/4]", "[4/4]"}
		if len(steps) != len(want) {
			t.Fatalf("expected %d write steps, got %v", len(want), steps)
		}
		for i, step := range steps {
			if step != want[i] {
				t.Errorf("step %d = %s, want %s", i, step, want[i])
			}
		}
	})

	t.Run("Replica Listing Failure Aborts", func(t *testing.T) {
		cat := newFakeCatalog(newFakeScope("A"))
		cat.replicasErr = errors.New("server offline")

		_, err := testEngine(cat, nil).Broadcast(context.Background(), nil, opts)
		if err == nil {
			t.Error("expected error when membership cannot be listed")
		}
	})

	t.Run("Admin Write Failure Is Isolated", func(t *testing.T) {
		a := newFakeScope("A")
		a.playlists["Staff Picks"] = &fakePlaylist{
			name:  "Staff Picks",
			items: []catalog.Item{addedItem("T1", day(1))},
		}
		admin := newFakeScope("admin")
		admin.createErr = errors.New("read only")
		b := newFakeScope("B")

		cat := newFakeCatalog(a, b)
		cat.admin = admin
		cat.replicas = []string{"B"}

		localOpts := opts
		localOpts.Curators = []string{"A"}

		result, err := testEngine(cat, nil).Broadcast(context.Background(), nil, localOpts)
		if err != nil {
			t.Fatalf("Broadcast() error = %v", err)
		}
		if result.SkippedWrites != 1 {
			t.Errorf("expected 1 skipped write, got %d", result.SkippedWrites)
		}
		if result.UsersUpdated != 1 {
			t.Errorf("expected B still updated, got %d", result.UsersUpdated)
		}
	})
}

func TestEngine_Validation(t *testing.T) {
	t.Run("Nil Catalog", func(t *testing.T) {
		engine := testEngine(nil, nil)
		_, err := engine.SyncRated(context.Background(), nil, RatedOptions{PlaylistName: "x"})
		if !errors.Is(err, shared.ErrCatalogUnavailable) {
			t.Errorf("expected ErrCatalogUnavailable, got %v", err)
		}
	})

	t.Run("Missing Playlist Name", func(t *testing.T) {
		engine := testEngine(newFakeCatalog(), nil)
		_, err := engine.SyncShared(context.Background(), nil, SharedOptions{Members: []string{"A"}})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestProgressUpdate_NonBlocking(t *testing.T) {
	a := newFakeScope("A")
	a.rated = []catalog.Item{ratedItem("T1", day(1))}
	cat := newFakeCatalog(a)
	engine := testEngine(cat, nil)

	// Unbuffered channel with no reader: sends must be dropped, not block.
	progress := make(chan ProgressUpdate)

	done := make(chan bool)
	go func() {
		_, err := engine.SyncRated(context.Background(), progress, RatedOptions{
			Contributors: []string{"A"},
			PlaylistName: "Heavy Rotation",
			MinRating:    10,
			MaxTracks:    50,
		})
		if err != nil {
			t.Errorf("SyncRated() error = %v", err)
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Error("SyncRated() should not block on progress sends")
	}
}
