// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/jamsync/internal/catalog"
)

// MockCatalog is a configurable test double for [catalog.Catalog].
type MockCatalog struct {
	Scopes      map[string]*MockScope
	Admin       *MockScope
	ReplicaIDs  []string
	ScopeErr    error
	ReplicasErr error
	Info        *catalog.ServerInfo
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{Scopes: map[string]*MockScope{}}
}

func (m *MockCatalog) Scope(ctx context.Context, replicaID string) (catalog.ScopedCatalog, error) {
	if m.ScopeErr != nil {
		return nil, m.ScopeErr
	}
	if scope, found := m.Scopes[replicaID]; found {
		return scope, nil
	}
	return nil, errors.New("no such replica: " + replicaID)
}

func (m *MockCatalog) AdminScope(ctx context.Context) (catalog.ScopedCatalog, error) {
	if m.Admin == nil {
		return nil, errors.New("no admin scope configured")
	}
	return m.Admin, nil
}

func (m *MockCatalog) Replicas(ctx context.Context) ([]string, error) {
	if m.ReplicasErr != nil {
		return nil, m.ReplicasErr
	}
	return m.ReplicaIDs, nil
}

func (m *MockCatalog) ServerInfo(ctx context.Context) (*catalog.ServerInfo, error) {
	if m.Info == nil {
		return &catalog.ServerInfo{Name: "mock"}, nil
	}
	return m.Info, nil
}

// MockScope is a test double for [catalog.ScopedCatalog] backed by maps.
type MockScope struct {
	Replica     string
	Playlists   map[string]*MockPlaylist
	Rated       []catalog.Item
	RatedErr    error
	FindErr     error
	CreateErr   error
	SearchHit   *catalog.Item
	SearchErr   error
	SearchCalls []string
}

func NewMockScope(replica string) *MockScope {
	return &MockScope{Replica: replica, Playlists: map[string]*MockPlaylist{}}
}

func (m *MockScope) ReplicaID() string { return m.Replica }

func (m *MockScope) FindPlaylist(ctx context.Context, name string) (catalog.PlaylistHandle, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	if pl, found := m.Playlists[name]; found {
		return pl, nil
	}
	return nil, nil
}

func (m *MockScope) CreatePlaylist(ctx context.Context, name string, items []catalog.Item) (catalog.PlaylistHandle, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	pl := &MockPlaylist{PlaylistName: name, Entries: append([]catalog.Item(nil), items...)}
	m.Playlists[name] = pl
	return pl, nil
}

func (m *MockScope) SearchByRating(ctx context.Context, sectionType string, minRating float64) ([]catalog.Item, error) {
	if m.RatedErr != nil {
		return nil, m.RatedErr
	}
	return m.Rated, nil
}

func (m *MockScope) SearchTrack(ctx context.Context, query string) (*catalog.Item, error) {
	m.SearchCalls = append(m.SearchCalls, query)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.SearchHit, nil
}

// MockPlaylist is a test double for [catalog.PlaylistHandle].
type MockPlaylist struct {
	PlaylistName string
	Entries      []catalog.Item
	ItemsErr     error
	AddErr       error
	RemoveErr    error
}

func (m *MockPlaylist) Name() string { return m.PlaylistName }

func (m *MockPlaylist) Items(ctx context.Context) ([]catalog.Item, error) {
	if m.ItemsErr != nil {
		return nil, m.ItemsErr
	}
	items := make([]catalog.Item, len(m.Entries))
	copy(items, m.Entries)
	return items, nil
}

func (m *MockPlaylist) AddItems(ctx context.Context, items []catalog.Item) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.Entries = append(m.Entries, items...)
	return nil
}

func (m *MockPlaylist) RemoveItems(ctx context.Context, items []catalog.Item) error {
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	drop := make(map[string]struct{}, len(items))
	for _, item := range items {
		drop[item.Key] = struct{}{}
	}
	var kept []catalog.Item
	for _, item := range m.Entries {
		if _, found := drop[item.Key]; !found {
			kept = append(kept, item)
		}
	}
	m.Entries = kept
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
