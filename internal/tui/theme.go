package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/loopscope/loopscope/internal/stream"
)

// Theme holds accent-color-derived styles. Non-accent styles (toolIcon,
// toolStyle, color vars) are package-level and shared via styles.go.
type Theme struct {
	accentStyle lipgloss.Style // header bar
	accentText  lipgloss.Style // accent-colored foreground
	border      lipgloss.Style // panel border
}

// NewTheme creates a Theme from a hex accent color string (e.g. "#5FAFD7").
// If accentColor is empty, the default accent color is used.
func NewTheme(accentColor string) Theme {
	color := defaultAccentColor
	if accentColor != "" {
		color = accentColor
	}
	c := lipgloss.Color(color)
	return Theme{
		accentStyle: lipgloss.NewStyle().
			Background(c).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true),
		accentText: lipgloss.NewStyle().
			Foreground(c),
		border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray),
	}
}

// AccentHeaderStyle returns the style for the header bar.
func (t Theme) AccentHeaderStyle() lipgloss.Style {
	return t.accentStyle
}

// AccentTextStyle returns an accent-colored foreground style.
func (t Theme) AccentTextStyle() lipgloss.Style {
	return t.accentText
}

// PanelBorderStyle returns the border style for the stat and log panels.
func (t Theme) PanelBorderStyle() lipgloss.Style {
	return t.border
}

// RenderEventLine renders one classified event as a single terminal line,
// truncated to fit width.
func (t Theme) RenderEventLine(ev *stream.Event, width int) string {
	ts := timestampStyle.Render(fmt.Sprintf("[%s]", ev.ObservedAt.Format("15:04:05")))

	switch ev.Kind {
	case stream.KindLoopMarker:
		return fmt.Sprintf("%s  ── iteration %d ──", ts, ev.Iteration)

	case stream.KindToolCall:
		icon := toolIcon(ev.ToolName)
		style := toolStyle(ev.ToolName)
		displayName := ev.ToolName
		if len(displayName) > 14 {
			displayName = displayName[:13] + "…"
		}
		name := style.Render(fmt.Sprintf("%-14s", displayName))
		input := inputPreview(ev.ToolInput)
		maxInput := width - 32
		if maxInput < 20 {
			maxInput = 20
		}
		input = truncateRunes(input, maxInput)
		return fmt.Sprintf("%s  %s %s %s", ts, icon, name, input)

	case stream.KindText:
		text := truncateRunes(singleLine(ev.Text), maxWidth(width-17))
		return fmt.Sprintf("%s  %s", ts, infoStyle.Render("💭 "+text))

	case stream.KindToolResult:
		if ev.Result.IsError {
			msg := truncateRunes(singleLine(ev.Result.Content), maxWidth(width-17))
			return fmt.Sprintf("%s  %s", ts, errorStyle.Render("❌ "+msg))
		}
		return fmt.Sprintf("%s  %s", ts, okStyle.Render("✓ ok"))

	case stream.KindError:
		msg := truncateRunes(singleLine(ev.Err), maxWidth(width-17))
		return fmt.Sprintf("%s  %s", ts, errorStyle.Render("❌ "+msg))

	default:
		raw := truncateRunes(singleLine(ev.Raw), maxWidth(width-17))
		return fmt.Sprintf("%s  %s", ts, labelStyle.Render(raw))
	}
}

// previewKeys are tried in order when summarizing a tool input map.
var previewKeys = []string{"command", "file_path", "path", "pattern", "url", "query"}

// inputPreview summarizes a tool input map as one short string. Known
// primary keys win; otherwise keys are joined in sorted order.
func inputPreview(input map[string]any) string {
	if len(input) == 0 {
		return ""
	}
	for _, k := range previewKeys {
		if v, ok := input[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return singleLine(s)
			}
		}
	}
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, input[k]))
	}
	return singleLine(strings.Join(parts, " "))
}

// singleLine collapses newlines and surrounding space so an entry never
// breaks the one-line-per-event log.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes shortens s to at most max runes, ellipsized.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func maxWidth(w int) int {
	if w < 20 {
		return 20
	}
	return w
}
