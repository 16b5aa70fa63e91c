package sync

import (
	"context"
	"time"

	"github.com/desertthunder/jamsync/internal/catalog"
)

// collectedItem is a catalog item paired with the replica it was read from
// and the activity timestamp relevant to the active merge rule.
type collectedItem struct {
	item    catalog.Item
	replica string
	at      *time.Time
}

// collectRated gathers a replica's tracks rated at or above minRating.
//
// Items without a rating timestamp are excluded: a rating with no recorded
// event cannot participate in a timestamp-ordered merge.
func collectRated(ctx context.Context, scope catalog.ScopedCatalog, minRating float64) ([]collectedItem, error) {
	items, err := scope.SearchByRating(ctx, catalog.SectionMusic, minRating)
	if err != nil {
		return nil, err
	}

	collected := make([]collectedItem, 0, len(items))
	for _, item := range items {
		if item.RatedAt == nil {
			continue
		}
		collected = append(collected, collectedItem{
			item:    item,
			replica: scope.ReplicaID(),
			at:      item.RatedAt,
		})
	}

	return collected, nil
}

// collectMembers gathers the current members of a replica's playlist,
// timestamped by when each entered the playlist. A replica without the
// playlist contributes nothing and is not an error.
func collectMembers(ctx context.Context, scope catalog.ScopedCatalog, name string) ([]collectedItem, error) {
	handle, err := scope.FindPlaylist(ctx, name)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, nil
	}

	items, err := handle.Items(ctx)
	if err != nil {
		return nil, err
	}

	collected := make([]collectedItem, 0, len(items))
	for _, item := range items {
		collected = append(collected, collectedItem{
			item:    item,
			replica: scope.ReplicaID(),
			at:      item.AddedAt,
		})
	}

	return collected, nil
}
