// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for playlist reconciliation:
//  1. [PolicyListView] : Pick one of the three sync policies
//  2. [ConfirmView] : Review playlist name and targets before running
//  3. [SyncView] : Monitor real-time progress updates
//  4. [ResultView] : Display the merged track list and counters
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the sync engine, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
