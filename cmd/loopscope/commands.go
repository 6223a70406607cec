package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loopscope/loopscope/internal/config"
	"github.com/loopscope/loopscope/internal/record"
	"github.com/loopscope/loopscope/internal/stream"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Follow an agent output file (or piped stdin) and monitor the session",
		Args:  cobra.MaximumNArgs(1),
		RunE:  executeWatch,
	}
	cmd.Flags().String("glob", "", "follow the newest file matching this pattern (overrides config)")
	cmd.Flags().Bool("from-start", false, "read existing file content before following")
	addPresentationFlags(cmd)
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run -- <command> [args...]",
		Short: "Spawn an agent command and monitor its output",
		Args:  cobra.MinimumNArgs(1),
		RunE:  executeRun,
	}
	addPresentationFlags(cmd)
	return cmd
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold loopscope.toml and the .loopscope directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			created, err := config.Scaffold(dir)
			if err != nil {
				return err
			}
			fmt.Print(formatScaffoldResult(created))
			return nil
		},
	}
}

func lastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Show the summary of the previous monitored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showLast()
		},
	}
}

// addPresentationFlags registers the output flags shared by watch and run.
func addPresentationFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-tui", false, "print events to stdout instead of the TUI")
	cmd.Flags().String("serve", "", "serve the web dashboard on this address (overrides config)")
	cmd.Flags().String("record", "", "write a JSONL transcript to this path (overrides config)")
	cmd.Flags().String("repo", "", "read git context from this directory (default: working directory)")
}

// formatScaffoldResult renders the output of `loopscope init`.
func formatScaffoldResult(created []string) string {
	if len(created) == 0 {
		return "All files already exist — nothing to create.\n"
	}
	var b strings.Builder
	for _, path := range created {
		fmt.Fprintf(&b, "Created %s\n", path)
	}
	return b.String()
}

// formatSummary renders a session summary for `loopscope last` and the
// --no-tui exit report.
func formatSummary(s record.Summary) string {
	var b strings.Builder
	b.WriteString("Session summary\n")
	b.WriteString("───────────────\n")

	if s.Project != "" {
		fmt.Fprintf(&b, "  %-14s %s\n", "Project:", s.Project)
	}
	if s.Source != "" {
		fmt.Fprintf(&b, "  %-14s %s\n", "Source:", s.Source)
	}
	fmt.Fprintf(&b, "  %-14s %s\n", "Status:", s.Status)
	fmt.Fprintf(&b, "  %-14s %d\n", "Iterations:", s.Stats.Iteration)
	fmt.Fprintf(&b, "  %-14s in %d, out %d\n", "Tokens:", s.Stats.InputTokens, s.Stats.OutputTokens)
	fmt.Fprintf(&b, "  %-14s %d (%d failed)\n", "Tool calls:", len(s.Stats.ToolCalls), s.Stats.FailedCalls())
	fmt.Fprintf(&b, "  %-14s %d\n", "Errors:", len(s.Stats.Errors))

	if !s.Stats.StartedAt.IsZero() && !s.EndedAt.IsZero() {
		dur := s.EndedAt.Sub(s.Stats.StartedAt).Round(time.Second)
		fmt.Fprintf(&b, "  %-14s %s\n", "Duration:", dur)
	}
	if !s.EndedAt.IsZero() {
		fmt.Fprintf(&b, "  %-14s %s\n", "Ended:", s.EndedAt.Format("2006-01-02 15:04:05"))
	}
	if s.Stats.Model != "" {
		fmt.Fprintf(&b, "  %-14s %s\n", "Model:", s.Stats.Model)
	}
	return b.String()
}

// lineCap bounds a --no-tui output line so one giant tool result cannot
// flood the log.
const lineCap = 160

// formatEventLine renders one classified event as a plain stdout line for
// --no-tui mode.
func formatEventLine(ev *stream.Event) string {
	ts := ev.ObservedAt.Format("15:04:05")
	switch ev.Kind {
	case stream.KindLoopMarker:
		return fmt.Sprintf("%s ── iteration %d ──", ts, ev.Iteration)
	case stream.KindToolCall:
		line := fmt.Sprintf("%s tool  %s", ts, ev.ToolName)
		if preview := previewInput(ev.ToolInput); preview != "" {
			line += "  " + preview
		}
		return clip(line)
	case stream.KindText:
		return clip(fmt.Sprintf("%s text  %s", ts, flatten(ev.Text)))
	case stream.KindToolResult:
		if ev.Result.IsError {
			return clip(fmt.Sprintf("%s FAIL  %s", ts, flatten(ev.Result.Content)))
		}
		return ts + " ok"
	case stream.KindError:
		return clip(fmt.Sprintf("%s error %s", ts, flatten(ev.Err)))
	default:
		return clip(fmt.Sprintf("%s other %s", ts, flatten(ev.Raw)))
	}
}

// previewInput picks the most informative tool input value for a one-line
// mention: a well-known string field if present, otherwise the field count.
func previewInput(input map[string]any) string {
	for _, key := range []string{"command", "file_path", "path", "pattern", "url", "query"} {
		if v, ok := input[key].(string); ok && v != "" {
			return v
		}
	}
	if len(input) == 0 {
		return ""
	}
	return fmt.Sprintf("(%d fields)", len(input))
}

// flatten collapses all whitespace runs to single spaces.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= lineCap {
		return s
	}
	return string(runes[:lineCap-1]) + "…"
}
