package tui

import (
	"time"

	"github.com/loopscope/loopscope/internal/stream"
)

// eventMsg wraps one event received from the feed.
type eventMsg struct{ ev *stream.Event }

// feedClosedMsg signals the event channel closed: the session is over.
type feedClosedMsg struct{}

// tickMsg is sent every second for the clock and snapshot refresh.
type tickMsg time.Time
