// Package models defines the persistent entities of the jamsync run history.
//
// The engine itself is stateless; the only database-backed entity is
// [SyncRun], an audit record of one policy invocation. Run history is
// write-once: rows are created when a sync completes and never updated.
// All entities implement the Model interface providing identity, creation
// timestamps, and validation.
package models
