// Package stats folds classified stream events into a running summary of
// one monitored agent session.
package stats

import "time"

// ToolCallRecord is one completed tool invocation.
type ToolCallRecord struct {
	Tool    string `json:"tool"`
	Success bool   `json:"success"`
	// Duration is only meaningful when Matched is true. A result can arrive
	// for a call that was never observed (stream truncation); such records
	// carry no start time to measure from.
	Duration    time.Duration `json:"duration"`
	Matched     bool          `json:"matched"`
	CompletedAt time.Time     `json:"completed_at"`
}

// LoopStats is the aggregated view of a session. Snapshots returned by the
// engine are value copies with their own slices; holding one is safe across
// later updates.
type LoopStats struct {
	Iteration           int              `json:"iteration"`
	StartedAt           time.Time        `json:"started_at"`
	InputTokens         int64            `json:"input_tokens"`
	OutputTokens        int64            `json:"output_tokens"`
	CacheCreationTokens int64            `json:"cache_creation_tokens"`
	CacheReadTokens     int64            `json:"cache_read_tokens"`
	ToolCalls           []ToolCallRecord `json:"tool_calls"`
	Errors              []string         `json:"errors"`
	Model               string           `json:"model,omitempty"`
	SessionID           string           `json:"session_id,omitempty"`
	Pending             int              `json:"pending"`
	LastActivity        time.Time        `json:"last_activity"`
	LastCommit          time.Time        `json:"last_commit"`
}

// TotalTokens sums the four token counters.
func (s LoopStats) TotalTokens() int64 {
	return s.InputTokens + s.OutputTokens + s.CacheCreationTokens + s.CacheReadTokens
}

// FailedCalls counts tool calls that reported an error.
func (s LoopStats) FailedCalls() int {
	n := 0
	for _, c := range s.ToolCalls {
		if !c.Success {
			n++
		}
	}
	return n
}
