package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/jamsync/internal/shared"
	syncer "github.com/desertthunder/jamsync/internal/sync"
)

var (
	_ list.Item = policyItem{}
	_ list.Item = trackItem{}
)

// policyItem wraps one sync policy to implement [list.Item].
type policyItem struct {
	policy   string
	name     string
	playlist string
	detail   string
}

func (i policyItem) FilterValue() string { return i.name }
func (i policyItem) Title() string       { return i.name }
func (i policyItem) Description() string {
	return fmt.Sprintf("%s • %s", i.playlist, i.detail)
}

// policyItems builds the selectable policy list from the sync config.
func policyItems(cfg shared.SyncConfig) []list.Item {
	return []list.Item{
		policyItem{
			policy:   syncer.PolicyRated,
			name:     "Rated Sync",
			playlist: cfg.RatedPlaylist,
			detail:   fmt.Sprintf("top-rated tracks for %d contributors", len(cfg.Contributors)),
		},
		policyItem{
			policy:   syncer.PolicyShared,
			name:     "Shared Sync",
			playlist: cfg.SharedPlaylist,
			detail:   fmt.Sprintf("merge %d member copies", len(cfg.Members)),
		},
		policyItem{
			policy:   syncer.PolicyBroadcast,
			name:     "Broadcast",
			playlist: cfg.BroadcastPlaylist,
			detail:   fmt.Sprintf("curated by %d, pushed to everyone", len(cfg.Curators)),
		},
	}
}

// trackItem wraps [syncer.TrackEntry] to implement [list.Item].
type trackItem struct {
	track syncer.TrackEntry
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := i.track.Artist
	if i.track.Replica != "" {
		desc = fmt.Sprintf("%s • added by %s", desc, i.track.Replica)
	}
	if date := shared.FormatShortDate(i.track.At); date != "" {
		desc = fmt.Sprintf("%s • %s", desc, date)
	}
	return desc
}
