package stream

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// loopMarkerRE matches iteration boundary lines such as
// "========== LOOP 7 ==========". Ten or more '=' on each side.
var loopMarkerRE = regexp.MustCompile(`^={10,}\s*LOOP\s+(\d+)\s*={10,}$`)

// streamMessage is the top-level JSON object of a stream-json line.
type streamMessage struct {
	Type          string          `json:"type"`
	SessionID     string          `json:"session_id"`
	Message       *messageContent `json:"message"`
	ToolUseResult json.RawMessage `json:"toolUseResult"`
}

type messageContent struct {
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   Usage          `json:"usage"`
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     map[string]any  `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

// sideChannel is the separate stdout/stderr structure some streams attach
// to a tool result.
type sideChannel struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// Classify turns one line of agent output into an Event, or nil for an
// empty line. The line must already be stripped of its trailing newline.
// Classify never fails: anything that is not a loop marker or a known
// message shape comes back as an unknown event.
func Classify(line string) *Event {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	now := time.Now()

	// Marker lines are plain text; check before attempting JSON.
	if m := loopMarkerRE.FindStringSubmatch(trimmed); m != nil {
		n, _ := strconv.Atoi(m[1])
		return &Event{Kind: KindLoopMarker, Raw: line, ObservedAt: now, Iteration: n}
	}

	var msg streamMessage
	if err := json.Unmarshal([]byte(trimmed), &msg); err == nil {
		switch msg.Type {
		case "assistant":
			return classifyAssistant(&msg, line, now)
		case "user":
			if ev := classifyUser(&msg, line, now); ev != nil {
				return ev
			}
		}
	}

	// Unrelated JSON keeps its parsed form; plain log chatter keeps the
	// trimmed text. Neither is a failure.
	var doc any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return &Event{Kind: KindUnknown, Raw: line, ObservedAt: now, Payload: trimmed}
	}
	return &Event{Kind: KindUnknown, Raw: line, ObservedAt: now, Payload: doc}
}

// classifyAssistant normalizes an assistant message. The first tool
// invocation wins the event; all invocations are retained in Calls so every
// one can be matched against a later result.
func classifyAssistant(msg *streamMessage, raw string, now time.Time) *Event {
	ev := &Event{
		Raw:        raw,
		ObservedAt: now,
		Assistant:  true,
		SessionID:  msg.SessionID,
	}

	var texts []string
	if msg.Message != nil {
		ev.Model = msg.Message.Model
		ev.Usage = msg.Message.Usage
		for _, block := range msg.Message.Content {
			switch block.Type {
			case "tool_use":
				ev.Calls = append(ev.Calls, ToolCall{ID: block.ID, Name: block.Name, Input: block.Input})
			case "text":
				if block.Text != "" {
					texts = append(texts, block.Text)
				}
			}
		}
	}

	switch {
	case len(ev.Calls) > 0:
		first := ev.Calls[0]
		ev.Kind = KindToolCall
		ev.ToolID = first.ID
		ev.ToolName = first.Name
		ev.ToolInput = first.Input
	case len(texts) > 0:
		ev.Kind = KindText
		ev.Text = strings.Join(texts, "\n")
	default:
		ev.Kind = KindUnknown
	}
	return ev
}

// classifyUser extracts the first tool result from a user message. Returns
// nil when the message carries no tool result.
func classifyUser(msg *streamMessage, raw string, now time.Time) *Event {
	if msg.Message == nil {
		return nil
	}
	for _, block := range msg.Message.Content {
		if block.Type != "tool_result" {
			continue
		}
		res := ToolResult{
			ID:      block.ToolUseID,
			Content: resultText(block.Content),
			IsError: block.IsError,
		}
		var sc sideChannel
		if len(msg.ToolUseResult) > 0 {
			_ = json.Unmarshal(msg.ToolUseResult, &sc)
		}
		res.Stdout = sc.Stdout
		res.Stderr = sc.Stderr
		return &Event{Kind: KindToolResult, Raw: raw, ObservedAt: now, Result: res}
	}
	return nil
}

// resultText flattens tool result content, which arrives either as a plain
// string or as a sequence of text blocks.
func resultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var texts []string
		for _, b := range blocks {
			if b.Type == "text" && b.Text != "" {
				texts = append(texts, b.Text)
			}
		}
		return strings.Join(texts, "\n")
	}
	return string(raw)
}
