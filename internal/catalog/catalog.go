// package catalog defines the contract jamsync requires from a shared media
// catalog and its per-replica scopes.
package catalog

import (
	"context"
	"time"
)

// SectionMusic is the section type carrying music libraries.
const SectionMusic = "artist"

// Catalog is the root client for a shared media server.
//
// Scopes are peers: none is privileged except the admin scope, which some
// policies designate explicitly as a write target.
type Catalog interface {
	// Scope returns a catalog bound to the given replica. All subsequent
	// reads and writes through the returned value apply to that replica
	// alone. Fails with [shared.ErrScopeUnavailable] when the replica
	// cannot be reached.
	Scope(ctx context.Context, replicaID string) (ScopedCatalog, error)

	// AdminScope returns the unswitched admin view of the catalog.
	AdminScope(ctx context.Context) (ScopedCatalog, error)

	// Replicas lists the replica ids of all non-admin members.
	Replicas(ctx context.Context) ([]string, error)

	// ServerInfo reports basic facts about the backing server.
	ServerInfo(ctx context.Context) (*ServerInfo, error)
}

// ScopedCatalog is a Catalog view bound to exactly one replica.
type ScopedCatalog interface {
	// ReplicaID identifies the replica this scope is bound to.
	ReplicaID() string

	// FindPlaylist looks up a playlist by name. A missing playlist is not
	// an error: the handle is nil and so is the error.
	FindPlaylist(ctx context.Context, name string) (PlaylistHandle, error)

	// CreatePlaylist creates a playlist seeded with items and returns its
	// handle. The catalog rejects empty playlists, so items must be
	// non-empty.
	CreatePlaylist(ctx context.Context, name string, items []Item) (PlaylistHandle, error)

	// SearchByRating returns items in sections of the given type whose
	// user rating meets the threshold, carrying their rating timestamp
	// when the catalog recorded one.
	SearchByRating(ctx context.Context, sectionType string, minRating float64) ([]Item, error)

	// SearchTrack returns the best match for a free-text track query, or
	// nil when nothing matches.
	SearchTrack(ctx context.Context, query string) (*Item, error)
}

// PlaylistHandle is a named, ordered collection of items within one replica
// scope. Order is significant: capacity eviction truncates the tail.
type PlaylistHandle interface {
	Name() string

	// Items returns the current members in playlist order.
	Items(ctx context.Context) ([]Item, error)

	// AddItems appends items to the playlist. No partial-success contract
	// is assumed: on error the remote state of the batch is unspecified.
	AddItems(ctx context.Context, items []Item) error

	// RemoveItems removes the given members. Items must originate from a
	// previous Items call on the same handle.
	RemoveItems(ctx context.Context, items []Item) error
}

// Item is a single catalog entry.
//
// Key is the catalog-assigned stable identifier and the only field dedup,
// diff, and eviction decisions may use; titles and artists collide across
// distinct recordings.
type Item struct {
	Key     string
	Title   string
	Artist  string
	RatedAt *time.Time // last rating event, nil when the item was never rated
	AddedAt *time.Time // when the item entered its playlist, nil outside playlist listings

	// memberID is the playlist-local member identifier required for
	// removal; populated only by PlaylistHandle.Items.
	memberID int64
}

// ServerInfo describes the backing media server.
type ServerInfo struct {
	Name     string
	Version  string
	Platform string
	Users    int
}
