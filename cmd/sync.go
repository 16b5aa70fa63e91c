package main

import (
	"context"

	"github.com/desertthunder/jamsync/internal/formatter"
	"github.com/desertthunder/jamsync/internal/shared"
	syncer "github.com/desertthunder/jamsync/internal/sync"
	"github.com/urfave/cli/v3"
)

// SyncRated runs the incremental-capped rated policy for the configured
// contributors.
func (r *Runner) SyncRated(ctx context.Context, cmd *cli.Command) error {
	opts := syncer.RatedOptions{
		Contributors: r.config.Sync.Contributors,
		PlaylistName: r.config.Sync.RatedPlaylist,
		MinRating:    r.config.Sync.MinRating,
		MaxTracks:    r.config.Sync.MaxTracks,
	}
	if playlist := cmd.String("playlist"); playlist != "" {
		opts.PlaylistName = playlist
	}
	if cmd.IsSet("min-rating") {
		opts.MinRating = cmd.Float("min-rating")
	}
	if cmd.IsSet("max-tracks") {
		opts.MaxTracks = cmd.Int("max-tracks")
	}

	r.logger.Info("starting rated sync", "playlist", opts.PlaylistName, "contributors", len(opts.Contributors))

	return r.runPolicy(ctx, cmd, syncer.PolicyRated, opts.PlaylistName,
		func(progress chan<- syncer.ProgressUpdate) (*syncer.SyncResult, error) {
			return r.engine.SyncRated(ctx, progress, opts)
		})
}

// SyncShared converges every member's copy of the shared playlist.
func (r *Runner) SyncShared(ctx context.Context, cmd *cli.Command) error {
	opts := syncer.SharedOptions{
		Members:      r.config.Sync.Members,
		PlaylistName: r.config.Sync.SharedPlaylist,
	}
	if playlist := cmd.String("playlist"); playlist != "" {
		opts.PlaylistName = playlist
	}

	r.logger.Info("starting shared sync", "playlist", opts.PlaylistName, "members", len(opts.Members))

	return r.runPolicy(ctx, cmd, syncer.PolicyShared, opts.PlaylistName,
		func(progress chan<- syncer.ProgressUpdate) (*syncer.SyncResult, error) {
			return r.engine.SyncShared(ctx, progress, opts)
		})
}

// SyncBroadcast pushes the curators' merged playlist to every replica.
func (r *Runner) SyncBroadcast(ctx context.Context, cmd *cli.Command) error {
	opts := syncer.BroadcastOptions{
		Curators:     r.config.Sync.Curators,
		PlaylistName: r.config.Sync.BroadcastPlaylist,
	}
	if playlist := cmd.String("playlist"); playlist != "" {
		opts.PlaylistName = playlist
	}

	r.logger.Info("starting broadcast", "playlist", opts.PlaylistName, "curators", len(opts.Curators))

	return r.runPolicy(ctx, cmd, syncer.PolicyBroadcast, opts.PlaylistName,
		func(progress chan<- syncer.ProgressUpdate) (*syncer.SyncResult, error) {
			return r.engine.Broadcast(ctx, progress, opts)
		})
}

// runPolicy drains progress updates while the engine runs, then prints the
// summary in the requested format.
func (r *Runner) runPolicy(ctx context.Context, cmd *cli.Command, policy, playlist string, run func(chan<- syncer.ProgressUpdate) (*syncer.SyncResult, error)) error {
	asJSON := cmd.Bool("json")

	if !asJSON {
		r.writePlain("Running %s sync on %q...\n\n", policy, playlist)
	}

	// Create progress channel and goroutine to handle updates
	progressCh := make(chan syncer.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			if asJSON {
				continue
			}
			switch update.Phase {
			case syncer.Collect:
				r.writePlain("📥 %s\n", update.Message)
			case syncer.Merge:
				r.writePlain("\n🔀 %s\n\n", update.Message)
			case syncer.Write:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	result, err := run(progressCh)
	close(progressCh)

	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete")
	r.writePlain("%s\n", formatter.FormatSummary(policy, playlist, result))

	if len(result.Tracks) > 0 {
		r.writePlain("\nMerged tracks:\n")
		for i, track := range result.Tracks {
			r.writePlain("  %d. %s - %s", i+1, track.Artist, track.Title)
			if track.Replica != "" {
				r.writePlain(" (added by %s", track.Replica)
				if date := shared.FormatShortDate(track.At); date != "" {
					r.writePlain(", %s", date)
				}
				r.writePlain(")")
			}
			r.writePlain("\n")
		}
	}

	return nil
}
