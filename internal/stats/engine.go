package stats

import (
	"strings"
	"sync"
	"time"

	"github.com/loopscope/loopscope/internal/stream"
)

// Errors recorded in the snapshot are clipped to this many bytes.
const maxErrorLen = 200

// pendingCall is a tool invocation still waiting for its result. The table
// has no eviction: a call that never receives a result stays for the life
// of the session.
type pendingCall struct {
	tool      string
	startedAt time.Time
}

// Engine owns the mutable statistics for one monitoring session. All state
// lives on the instance; independent sessions are independent engines.
// Apply and ProcessLine are synchronous and never block on anything but the
// internal lock, so snapshots taken from other goroutines always observe
// whole messages, never half-applied ones.
type Engine struct {
	mu      sync.RWMutex
	stats   LoopStats
	pending map[string]pendingCall
	clock   func() time.Time
}

// New creates an engine using the wall clock.
func New() *Engine {
	return NewWithClock(time.Now)
}

// NewWithClock creates an engine with an injected time source.
func NewWithClock(clock func() time.Time) *Engine {
	return &Engine{
		stats:   LoopStats{StartedAt: clock()},
		pending: make(map[string]pendingCall),
		clock:   clock,
	}
}

// ProcessLine classifies one raw line and folds the result into the stats
// in a single step. Returns the classified event for presentation, or nil
// for a blank line.
func (e *Engine) ProcessLine(line string) *stream.Event {
	ev := stream.Classify(line)
	if ev == nil {
		return nil
	}
	e.mu.Lock()
	e.apply(ev)
	e.mu.Unlock()
	return ev
}

// Apply folds an already-classified event into the stats. A nil event is a
// no-op.
func (e *Engine) Apply(ev *stream.Event) {
	if ev == nil {
		return
	}
	e.mu.Lock()
	e.apply(ev)
	e.mu.Unlock()
}

func (e *Engine) apply(ev *stream.Event) {
	now := e.clock()

	// An assistant envelope updates usage, identifiers, and the pending
	// table regardless of which kind was surfaced for the line.
	if ev.Assistant {
		e.applyAssistant(ev, now)
	}

	switch ev.Kind {
	case stream.KindLoopMarker:
		// Markers are plain text boundaries, not session activity. The
		// monitored process is authoritative, so decreases are accepted.
		e.stats.Iteration = ev.Iteration
		return
	case stream.KindToolResult:
		e.applyResult(ev.Result, now)
	case stream.KindError:
		e.stats.Errors = append(e.stats.Errors, truncate(ev.Err, maxErrorLen))
	case stream.KindToolCall, stream.KindText, stream.KindUnknown:
		// Nothing beyond the assistant side effects and activity tracking.
	}

	e.stats.LastActivity = now
}

func (e *Engine) applyAssistant(ev *stream.Event, now time.Time) {
	e.stats.InputTokens += ev.Usage.InputTokens
	e.stats.OutputTokens += ev.Usage.OutputTokens
	e.stats.CacheCreationTokens += ev.Usage.CacheCreationTokens
	e.stats.CacheReadTokens += ev.Usage.CacheReadTokens
	if ev.Model != "" {
		e.stats.Model = ev.Model
	}
	if ev.SessionID != "" {
		e.stats.SessionID = ev.SessionID
	}
	for _, call := range ev.Calls {
		if call.ID == "" {
			continue
		}
		e.pending[call.ID] = pendingCall{tool: call.Name, startedAt: now}
	}
}

func (e *Engine) applyResult(res stream.ToolResult, now time.Time) {
	rec := ToolCallRecord{Tool: "unknown", Success: !res.IsError, CompletedAt: now}
	if pc, ok := e.pending[res.ID]; ok {
		delete(e.pending, res.ID)
		rec.Duration = now.Sub(pc.startedAt)
		rec.Matched = true
		if pc.tool != "" {
			rec.Tool = pc.tool
		}
	}
	e.stats.ToolCalls = append(e.stats.ToolCalls, rec)

	if res.IsError {
		e.stats.Errors = append(e.stats.Errors, truncate(res.Content, maxErrorLen))
		return
	}
	if mentionsCommit(res.Content) {
		e.stats.LastCommit = now
	}
}

// Snapshot returns a copy of the current stats, decoupled from later
// updates.
func (e *Engine) Snapshot() LoopStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.stats
	s.ToolCalls = append([]ToolCallRecord(nil), e.stats.ToolCalls...)
	s.Errors = append([]string(nil), e.stats.Errors...)
	s.Pending = len(e.pending)
	return s
}

// Reset drops all accumulated state and starts a fresh session record.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = LoopStats{StartedAt: e.clock()}
	e.pending = make(map[string]pendingCall)
}

// mentionsCommit reports whether a successful result's content points at a
// git commit or push. Best effort: truncated content can hide the match.
func mentionsCommit(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "git commit") || strings.Contains(lower, "git push")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
