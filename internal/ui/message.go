package ui

import (
	syncer "github.com/desertthunder/jamsync/internal/sync"
)

// progressUpdateMsg carries one engine progress event into the Elm loop.
type progressUpdateMsg syncer.ProgressUpdate

// syncCompleteMsg signals that the engine finished, successfully or not.
type syncCompleteMsg struct {
	result *syncer.SyncResult
	err    error
}
