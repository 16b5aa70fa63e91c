// Wire types for the Plex-style catalog API.
//
// Every endpoint wraps its payload in a MediaContainer envelope; the mapping
// helpers below convert container entries to [Item] values.
package catalog

import "time"

type apiResponse struct {
	MediaContainer mediaContainer `json:"MediaContainer"`
}

type mediaContainer struct {
	Size              int         `json:"size"`
	MachineIdentifier string      `json:"machineIdentifier"`
	FriendlyName      string      `json:"friendlyName"`
	Version           string      `json:"version"`
	Platform          string      `json:"platform"`
	Directory         []directory `json:"Directory"`
	Metadata          []metadata  `json:"Metadata"`
	Account           []account   `json:"Account"`
}

// directory represents a library section.
type directory struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// metadata represents a track or playlist entry.
type metadata struct {
	RatingKey        string  `json:"ratingKey"`
	PlaylistItemID   int64   `json:"playlistItemID"`
	Title            string  `json:"title"`
	GrandparentTitle string  `json:"grandparentTitle"`
	OriginalTitle    string  `json:"originalTitle"`
	UserRating       float64 `json:"userRating"`
	LastRatedAt      int64   `json:"lastRatedAt"`
	AddedAt          int64   `json:"addedAt"`
	LeafCount        int     `json:"leafCount"`
}

// account represents a server account; id 1 is always the owner.
type account struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type switchResponse struct {
	AuthToken string `json:"authToken"`
}

// mapItem converts a metadata entry to an Item, preserving the playlist
// member id when present.
func mapItem(md metadata) Item {
	item := Item{
		Key:      md.RatingKey,
		Title:    md.Title,
		Artist:   artistName(md),
		memberID: md.PlaylistItemID,
	}

	if md.LastRatedAt > 0 {
		t := time.Unix(md.LastRatedAt, 0).UTC()
		item.RatedAt = &t
	}
	if md.AddedAt > 0 {
		t := time.Unix(md.AddedAt, 0).UTC()
		item.AddedAt = &t
	}

	return item
}

func mapItems(mds []metadata) []Item {
	items := make([]Item, 0, len(mds))
	for _, md := range mds {
		items = append(items, mapItem(md))
	}
	return items
}

// artistName resolves the display attribution for a track.
//
// Album tracks carry the artist as grandparentTitle; compilation entries
// fall back to originalTitle.
func artistName(md metadata) string {
	if md.GrandparentTitle != "" {
		return md.GrandparentTitle
	}
	if md.OriginalTitle != "" {
		return md.OriginalTitle
	}
	return "Unknown"
}
