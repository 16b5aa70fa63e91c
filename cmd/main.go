package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/desertthunder/jamsync/internal/catalog"
	"github.com/desertthunder/jamsync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	timeout := time.Duration(config.Catalog.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cat := catalog.NewPlexCatalog(catalog.PlexOpts{
		BaseURL:           config.Catalog.URL,
		Token:             config.Catalog.Token,
		AdminName:         config.Sync.Admin,
		RequestsPerSecond: config.Catalog.RequestsPerSecond,
		HTTPClient:        &http.Client{Timeout: timeout},
		Logger:            logger,
	})

	// Run history is optional until `setup database` has created the store.
	var db *sql.DB
	if _, err := os.Stat(config.Database.Path); err == nil {
		if opened, err := shared.NewDatabase(config.Database); err == nil {
			db = opened
			defer db.Close()
		} else {
			logger.Warn("failed to open run history database", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Catalog: cat,
		DB:      db,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "jamsync",
		Usage:    "Reconcile playlists across the replicas of a shared media catalog",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
