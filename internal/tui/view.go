package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/loopscope/loopscope/internal/health"
	"github.com/loopscope/loopscope/internal/stats"
)

// recentTools is how many tool calls the tools panel shows.
const recentTools = 5

// View renders the TUI: header bar, stat panels, event log, footer bar.
func (m Model) View() string {
	if m.layout.TooSmall {
		return "terminal too small (minimum 80×20)\n"
	}

	header := m.renderHeader()
	statRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderStatsPanel(),
		m.renderToolsPanel(),
	)
	logPanel := m.renderLogPanel()
	footer := m.renderFooter()

	return header + "\n" + statRow + "\n" + logPanel + "\n" + footer
}

func (m Model) renderHeader() string {
	parts := []string{"◉ loopscope"}
	if m.opts.Project != "" {
		parts = append(parts, m.opts.Project)
	}
	if m.repo != nil && m.repo.Branch != "" {
		ref := m.repo.Branch + "@" + m.repo.Head
		if m.repo.Dirty {
			ref += "*"
		}
		parts = append(parts, ref)
	}
	if m.opts.Source != "" {
		parts = append(parts, m.opts.Source)
	}
	parts = append(parts,
		fmt.Sprintf("%s %s", statusSymbol(string(m.status)), m.status),
		fmt.Sprintf("iter: %d", m.snap.Iteration),
		fmt.Sprintf("elapsed: %s", FormatElapsed(m.now.Sub(m.startedAt))),
	)

	content := strings.Join(parts, "  │  ")
	return m.theme.AccentHeaderStyle().Width(m.width).Render(content)
}

func (m Model) renderStatsPanel() string {
	w, h := innerDims(m.layout.Stats)

	okCount, failCount := 0, 0
	for _, tc := range m.snap.ToolCalls {
		if !tc.Matched {
			continue
		}
		if tc.Success {
			okCount++
		} else {
			failCount++
		}
	}

	commitAge := "—"
	if !m.snap.LastCommit.IsZero() {
		commitAge = FormatElapsed(m.now.Sub(m.snap.LastCommit)) + " ago"
	}

	model := m.snap.Model
	if model == "" {
		model = "—"
	}

	title := "session"
	if id := shortID(m.snap.SessionID); id != "" {
		title += "  " + id
	}

	lines := []string{
		m.theme.AccentTextStyle().Render(title),
		fmt.Sprintf("%s %s in  %s out", labelStyle.Render("tokens "),
			formatCount(m.snap.InputTokens), formatCount(m.snap.OutputTokens)),
		fmt.Sprintf("%s %s write  %s read", labelStyle.Render("cache  "),
			formatCount(m.snap.CacheCreationTokens), formatCount(m.snap.CacheReadTokens)),
		fmt.Sprintf("%s %d  %s  %s  %d pending", labelStyle.Render("tools  "),
			len(m.snap.ToolCalls),
			okStyle.Render(fmt.Sprintf("✓%d", okCount)),
			errorStyle.Render(fmt.Sprintf("✗%d", failCount)),
			m.snap.Pending),
		fmt.Sprintf("%s %d", labelStyle.Render("errors "), len(m.snap.Errors)),
		fmt.Sprintf("%s %s  %s %s", labelStyle.Render("commit "), commitAge,
			labelStyle.Render("model"), model),
	}

	return m.theme.PanelBorderStyle().Width(w).Height(h).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderToolsPanel() string {
	w, h := innerDims(m.layout.Tools)

	lines := []string{m.theme.AccentTextStyle().Render("recent tools")}
	calls := m.snap.ToolCalls
	start := 0
	if len(calls) > recentTools {
		start = len(calls) - recentTools
	}
	for _, tc := range calls[start:] {
		lines = append(lines, renderToolRow(tc))
	}
	if len(calls) == 0 {
		lines = append(lines, labelStyle.Render("(none yet)"))
	}

	return m.theme.PanelBorderStyle().Width(w).Height(h).
		Render(strings.Join(lines, "\n"))
}

func renderToolRow(tc stats.ToolCallRecord) string {
	mark := labelStyle.Render("…")
	dur := "—"
	if tc.Matched {
		dur = fmt.Sprintf("%.1fs", tc.Duration.Seconds())
		if tc.Success {
			mark = okStyle.Render("✓")
		} else {
			mark = errorStyle.Render("✗")
		}
	}
	name := tc.Tool
	if len(name) > 14 {
		name = name[:13] + "…"
	}
	return fmt.Sprintf("%s %-14s %s", mark, name, dur)
}

func (m Model) renderLogPanel() string {
	w, h := innerDims(m.layout.Log)
	return m.theme.PanelBorderStyle().Width(w).Height(h).Render(m.log.View())
}

func (m Model) renderFooter() string {
	left := keyHints

	right := "following"
	if !m.log.Following() {
		right = "scroll (f to follow)"
	}
	if m.status == health.StatusStalled {
		last := m.snap.LastActivity
		if last.IsZero() {
			last = m.startedAt
		}
		right = stalledStyle.Render(fmt.Sprintf("⚠ no output for %s", FormatElapsed(m.now.Sub(last))))
	}
	if m.done {
		right = "session ended — q to exit"
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}

	return footerStyle.Width(m.width).Render(
		left + strings.Repeat(" ", gap) + right,
	)
}

// FormatElapsed renders a duration as a compact string: "5s", "2m30s",
// "1h15m".
func FormatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	min := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, min)
	}
	if min > 0 {
		return fmt.Sprintf("%dm%ds", min, s)
	}
	return fmt.Sprintf("%ds", s)
}

// shortID abbreviates a session UUID to its first group.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatCount humanizes a token counter: 950, 12.3k, 1.2M.
func formatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
