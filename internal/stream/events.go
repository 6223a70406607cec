// Package stream classifies raw agent output lines into tagged events.
package stream

import "time"

// Kind identifies how a line was classified.
type Kind string

const (
	KindToolCall   Kind = "tool_call"
	KindToolResult Kind = "tool_result"
	KindText       Kind = "text"
	KindLoopMarker Kind = "loop_marker"
	KindError      Kind = "error"
	KindUnknown    Kind = "unknown"
)

// ToolCall is a single tool invocation requested in an assistant message.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResult is the outcome of a tool invocation, carried in a user message.
// Stdout and Stderr come from the side-channel result structure when the
// stream provides one; they are empty otherwise.
type ToolResult struct {
	ID      string
	Content string
	IsError bool
	Stdout  string
	Stderr  string
}

// Usage holds the token counters reported by an assistant message.
// Fields absent on the wire decode to zero.
type Usage struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadTokens     int64 `json:"cache_read_input_tokens"`
}

// Event is one classified line of agent output. Kind selects which field
// group is meaningful. Events are immutable once constructed.
type Event struct {
	Kind       Kind
	Raw        string
	ObservedAt time.Time

	// LoopMarker fields
	Iteration int

	// Assistant envelope, set when Assistant is true (tool_call, text, and
	// assistant-derived unknown events). Calls holds every invocation item
	// in the message; only the first is surfaced in the ToolID/ToolName/
	// ToolInput fields.
	Assistant bool
	Model     string
	SessionID string
	Usage     Usage
	Calls     []ToolCall

	// ToolCall fields (first invocation of the message)
	ToolID    string
	ToolName  string
	ToolInput map[string]any

	// Text fields
	Text string

	// ToolResult fields
	Result ToolResult

	// Error fields
	Err string

	// Unknown payload: the parsed JSON document, or the trimmed raw text
	// when the line was not valid JSON.
	Payload any
}

// ErrorEvent creates an error event. Input adapters use it to surface
// read and process failures into the event feed.
func ErrorEvent(msg string) *Event {
	return &Event{
		Kind:       KindError,
		ObservedAt: time.Now(),
		Err:        msg,
	}
}
