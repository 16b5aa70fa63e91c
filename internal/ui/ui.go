package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jamsync/internal/shared"
	syncer "github.com/desertthunder/jamsync/internal/sync"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PolicyListView ViewState = iota
	ConfirmView
	SyncView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       syncer.Syncer
	cfg          shared.SyncConfig
	width        int
	height       int
	policyList   list.Model
	selected     policyItem
	trackList    list.Model
	progressChan chan syncer.ProgressUpdate
	progress     syncer.ProgressUpdate
	result       *syncer.SyncResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine syncer.Syncer, cfg shared.SyncConfig) *Model {
	policyList := list.New(policyItems(cfg), list.NewDefaultDelegate(), 0, 0)
	policyList.Title = "Sync Policies"

	return &Model{
		ctx:        ctx,
		view:       PolicyListView,
		engine:     engine,
		cfg:        cfg,
		policyList: policyList,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.policyList.SetSize(msg.Width-4, msg.Height-8)
		if m.trackList.Width() != 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-10)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PolicyListView:
			return m.handlePolicyListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case progressUpdateMsg:
		m.progress = syncer.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		if m.result != nil {
			items := make([]list.Item, len(m.result.Tracks))
			for i, track := range m.result.Tracks {
				items[i] = trackItem{track: track}
			}
			m.trackList = list.New(items, list.NewDefaultDelegate(), m.width-4, m.height-10)
			m.trackList.Title = fmt.Sprintf("Merged tracks in '%s'", m.selected.playlist)
		}
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PolicyListView:
		return m.renderPolicyList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePolicyListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		if selected := m.policyList.SelectedItem(); selected != nil {
			if item, ok := selected.(policyItem); ok {
				m.selected = item
				m.view = ConfirmView
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.policyList, cmd = m.policyList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = PolicyListView
		return m, nil
	case "y":
		m.view = SyncView
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = PolicyListView
		m.result = nil
		m.err = nil
		m.progress = syncer.ProgressUpdate{}
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PolicyListView:
		m.policyList, cmd = m.policyList.Update(msg)
	case ResultView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

// startSync launches the selected policy on a goroutine and begins draining
// its progress channel into the Elm loop.
func (m *Model) startSync() tea.Cmd {
	progressChan := make(chan syncer.ProgressUpdate, 50)
	m.progressChan = progressChan
	policy := m.selected.policy

	go func() {
		var (
			result *syncer.SyncResult
			err    error
		)

		switch policy {
		case syncer.PolicyRated:
			result, err = m.engine.SyncRated(m.ctx, progressChan, syncer.RatedOptions{
				Contributors: m.cfg.Contributors,
				PlaylistName: m.cfg.RatedPlaylist,
				MinRating:    m.cfg.MinRating,
				MaxTracks:    m.cfg.MaxTracks,
			})
		case syncer.PolicyShared:
			result, err = m.engine.SyncShared(m.ctx, progressChan, syncer.SharedOptions{
				Members:      m.cfg.Members,
				PlaylistName: m.cfg.SharedPlaylist,
			})
		case syncer.PolicyBroadcast:
			result, err = m.engine.Broadcast(m.ctx, progressChan, syncer.BroadcastOptions{
				Curators:     m.cfg.Curators,
				PlaylistName: m.cfg.BroadcastPlaylist,
			})
		}

		m.result = result
		m.err = err
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan := m.progressChan
	return func() tea.Msg {
		if progressChan == nil {
			return syncCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-progressChan
		if !ok {
			return syncCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPolicyList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.policyList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Run %s?", m.selected.name))
	info := fmt.Sprintf("\nPlaylist: %s\n%s\n", m.selected.playlist, m.selected.detail)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render(fmt.Sprintf("Running %s", m.selected.name))

	var phase string
	switch m.progress.Phase {
	case syncer.Collect:
		phase = fmt.Sprintf("Collecting (%d/%d)", m.progress.Step, m.progress.Total)
	case syncer.Merge:
		phase = "Merging..."
	case syncer.Write:
		phase = fmt.Sprintf("Writing (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Starting..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress r to retry, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to retry, q to quit")
	}

	title := styles.ok.Render("✓ Sync Complete")
	info := fmt.Sprintf(
		"\nMerged: %d  Added: %d  Replicas updated: %d\n",
		m.result.Total, m.result.Added, m.result.UsersUpdated,
	)

	var skipped string
	if m.result.SkippedReads > 0 || m.result.SkippedWrites > 0 {
		skipped = styles.warn.Render(fmt.Sprintf(
			"Skipped: %d reads, %d writes\n", m.result.SkippedReads, m.result.SkippedWrites,
		))
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s%s%s\n%s\n\n%s", title, info, skipped, m.trackList.View(), helpView)
}
