package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/jamsync/internal/catalog"
	"github.com/desertthunder/jamsync/internal/formatter"
	"github.com/desertthunder/jamsync/internal/shared"
	syncer "github.com/desertthunder/jamsync/internal/sync"
	"github.com/urfave/cli/v3"
)

// CatalogInfo shows server identity and replica count.
func (r *Runner) CatalogInfo(ctx context.Context, cmd *cli.Command) error {
	if r.cat == nil {
		return fmt.Errorf("%w: catalog client not initialized", shared.ErrCatalogUnavailable)
	}

	info, err := r.cat.ServerInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch server info: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(info, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Catalog Server")
	r.writePlain("Name: %s\n", info.Name)
	r.writePlain("Version: %s\n", info.Version)
	r.writePlain("Platform: %s\n", info.Platform)
	r.writePlain("Users: %d\n", info.Users)

	return nil
}

// CatalogSearch searches the admin scope for a track by title.
func (r *Runner) CatalogSearch(ctx context.Context, cmd *cli.Command) error {
	if r.cat == nil {
		return fmt.Errorf("%w: catalog client not initialized", shared.ErrCatalogUnavailable)
	}

	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	scope, err := r.cat.AdminScope(ctx)
	if err != nil {
		return fmt.Errorf("failed to open admin scope: %w", err)
	}

	r.logger.Info("searching catalog", "query", query)

	item, err := scope.SearchTrack(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if item == nil {
		return fmt.Errorf("%w: no track matched %q", shared.ErrTrackNotFound, query)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]string{
			"key":    item.Key,
			"title":  item.Title,
			"artist": item.Artist,
		}, cmd.Bool("pretty"))
	}

	r.writePlain("%s - %s (key %s)\n", item.Artist, item.Title, item.Key)
	return nil
}

// CatalogExport writes a playlist from the admin scope to a file.
func (r *Runner) CatalogExport(ctx context.Context, cmd *cli.Command) error {
	if r.cat == nil {
		return fmt.Errorf("%w: catalog client not initialized", shared.ErrCatalogUnavailable)
	}

	name := cmd.StringArg("playlist")
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	scope, err := r.cat.AdminScope(ctx)
	if err != nil {
		return fmt.Errorf("failed to open admin scope: %w", err)
	}

	handle, err := scope.FindPlaylist(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to look up playlist: %w", err)
	}
	if handle == nil {
		return fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
	}

	items, err := handle.Items(ctx)
	if err != nil {
		return fmt.Errorf("failed to read playlist: %w", err)
	}

	path, err := formatter.WriteExport(name, exportEntries(items), cmd.String("format"), cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("playlist exported", "playlist", name, "path", path, "tracks", len(items))
	r.writePlain("Exported %d tracks from %q to %s\n", len(items), name, path)

	return nil
}

// exportEntries converts playlist items to track entries. Admin exports
// carry no per-replica attribution.
func exportEntries(items []catalog.Item) []syncer.TrackEntry {
	entries := make([]syncer.TrackEntry, len(items))
	for i, item := range items {
		entries[i] = syncer.TrackEntry{
			Title:  item.Title,
			Artist: item.Artist,
		}
		if item.AddedAt != nil {
			entries[i].At = *item.AddedAt
		}
	}
	return entries
}
