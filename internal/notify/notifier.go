// Package notify sends fire-and-forget HTTP notifications for session
// events. The primary use case is ntfy.sh, but any HTTP webhook works.
package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Event classifies a notification.
type Event string

const (
	// EventStart fires once when monitoring begins.
	EventStart Event = "start"
	// EventStall fires when the session goes quiet past the stall window.
	EventStall Event = "stall"
	// EventResume fires when a stalled session produces output again.
	EventResume Event = "resume"
	// EventError fires on the first tool error of a session.
	EventError Event = "error"
	// EventCommit fires when the agent commits or pushes.
	EventCommit Event = "commit"
	// EventDone fires when the stream ends.
	EventDone Event = "done"
)

// Notifier posts JSON notifications for selected session events.
type Notifier struct {
	url       string
	title     string
	monitorID string
	onStall   bool
	onError   bool
	onCommit  bool
	onDone    bool
	client    *http.Client
}

// New creates a Notifier. projectName is used as the X-Title header; if
// empty, "loopscope" is used instead. Each Notifier carries a fresh monitor
// ID so receivers can group notifications from one monitoring run.
func New(notifURL, projectName string, onStall, onError, onCommit, onDone bool) *Notifier {
	title := "loopscope"
	if projectName != "" {
		title = projectName
	}
	return &Notifier{
		url:       notifURL,
		title:     title,
		monitorID: uuid.NewString(),
		onStall:   onStall,
		onError:   onError,
		onCommit:  onCommit,
		onDone:    onDone,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// MonitorID returns the ID stamped on every payload this Notifier sends.
func (n *Notifier) MonitorID() string {
	return n.monitorID
}

// Send fires an asynchronous POST for the event if its class is enabled and
// a URL is configured. Resume shares the stall toggle; start has no toggle
// and is sent whenever a URL is set.
func (n *Notifier) Send(ev Event, message string) {
	if n.url == "" || !n.enabledFor(ev) {
		return
	}
	go n.post(ev, message, time.Now())
}

func (n *Notifier) enabledFor(ev Event) bool {
	switch ev {
	case EventStart:
		return true
	case EventStall, EventResume:
		return n.onStall
	case EventError:
		return n.onError
	case EventCommit:
		return n.onCommit
	case EventDone:
		return n.onDone
	}
	return false
}

type payload struct {
	Event     string    `json:"event"`
	Message   string    `json:"message"`
	Project   string    `json:"project"`
	MonitorID string    `json:"monitor_id"`
	At        time.Time `json:"at"`
}

// post sends a JSON POST to the configured URL. Errors are silently
// discarded so notification failures never interrupt monitoring.
func (n *Notifier) post(ev Event, message string, at time.Time) {
	body, err := json.Marshal(payload{
		Event:     string(ev),
		Message:   message,
		Project:   n.title,
		MonitorID: n.monitorID,
		At:        at,
	})
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", n.title)
	resp, err := n.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
