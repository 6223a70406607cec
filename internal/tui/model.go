package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loopscope/loopscope/internal/git"
	"github.com/loopscope/loopscope/internal/health"
	"github.com/loopscope/loopscope/internal/stats"
	"github.com/loopscope/loopscope/internal/stream"
	"github.com/loopscope/loopscope/internal/tui/components"
)

// Engine is the part of the stats engine the TUI drives: snapshots every
// tick, reset on the r key.
type Engine interface {
	Snapshot() stats.LoopStats
	Reset()
}

// Options configures the TUI.
type Options struct {
	Project     string
	Source      string // watched file or spawned command
	AccentColor string
	StallAfter  time.Duration       // 0 disables the stalled badge
	LogLines    int                 // event log history cap, 0 = unlimited
	Repo        func() *git.Context // nil when not in a git repo
}

// Model is the root bubbletea model: header, stat panels, scrolling event
// log, footer.
type Model struct {
	engine Engine
	events <-chan *stream.Event

	theme  Theme
	layout Layout
	log    components.LogView
	width  int
	height int

	snap   stats.LoopStats
	status health.Status
	repo   *git.Context

	startedAt time.Time
	now       time.Time
	done      bool

	opts Options
}

// New creates the TUI model. The caller owns the engine and the event
// channel; the model only reads from both.
func New(engine Engine, events <-chan *stream.Event, opts Options) Model {
	now := time.Now()
	layout := Calculate(80, 24)
	logW, logH := innerDims(layout.Log)

	m := Model{
		engine:    engine,
		events:    events,
		theme:     NewTheme(opts.AccentColor),
		layout:    layout,
		log:       components.NewLogView(logW, logH, opts.LogLines),
		width:     80,
		height:    24,
		status:    health.StatusIdle,
		startedAt: now,
		now:       now,
		opts:      opts,
	}
	if opts.Repo != nil {
		m.repo = opts.Repo()
	}
	return m
}

// Init returns the initial commands: event listener plus clock ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), tickCmd())
}

// Done reports whether the event source has closed.
func (m Model) Done() bool { return m.done }

// tickCmd schedules the next one-second clock tick.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks on the event channel and returns the next message.
func waitForEvent(ch <-chan *stream.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return eventMsg{ev: ev}
	}
}
