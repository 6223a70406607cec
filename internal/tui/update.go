package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loopscope/loopscope/internal/health"
)

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m.handleTick(msg)

	case eventMsg:
		return m.handleEvent(msg)

	case feedClosedMsg:
		// Session over. Keep the TUI open so the final state stays
		// readable; q exits.
		m.done = true
		m.status = health.StatusDone
		m.snap = m.engine.Snapshot()
		return m, nil
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.layout = Calculate(msg.Width, msg.Height)
	if !m.layout.TooSmall {
		logW, logH := innerDims(m.layout.Log)
		m.log = m.log.SetSize(logW, logH)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if !IsGlobalKey(key) {
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}

	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "f":
		m.log = m.log.ToggleFollow()
	case "r":
		m.engine.Reset()
		m.snap = m.engine.Snapshot()
		if !m.done {
			m.status = health.Assess(m.snap, m.now, m.opts.StallAfter)
		}
	case "g", "home":
		m.log = m.log.GotoTop()
	case "G", "end":
		m.log = m.log.GotoBottom()
	}
	return m, nil
}

func (m Model) handleTick(msg tickMsg) (tea.Model, tea.Cmd) {
	m.now = time.Time(msg)
	prevCommit := m.snap.LastCommit
	m.snap = m.engine.Snapshot()
	if !m.done {
		m.status = health.Assess(m.snap, m.now, m.opts.StallAfter)
	}

	// Refresh repo context when the commit heuristic fires.
	if m.opts.Repo != nil && !m.snap.LastCommit.Equal(prevCommit) {
		m.repo = m.opts.Repo()
	}
	return m, tickCmd()
}

func (m Model) handleEvent(msg eventMsg) (tea.Model, tea.Cmd) {
	logW, _ := innerDims(m.layout.Log)
	m.log = m.log.AppendLine(m.theme.RenderEventLine(msg.ev, logW))
	return m, waitForEvent(m.events)
}
