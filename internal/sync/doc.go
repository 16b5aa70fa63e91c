// package sync implements playlist reconciliation across replica scopes of a
// shared media catalog.
//
// The core abstraction is Engine, which runs one of three fan-out policies:
// incremental-capped sync of highly rated tracks, full-replace sync of a
// shared playlist, and broadcast of a curated playlist to every replica.
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package sync
