// Package repositories implements SQLite persistence for the run history.
//
// Key implementations:
//   - [RunRepository] : CRUD over sync_runs, newest first
//   - [RunRecorderAdapter] : bridges the engine's RunRecorder hook to the
//     repository, so recording stays best-effort and out of the sync path
package repositories
