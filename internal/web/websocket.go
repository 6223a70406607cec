package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/loopscope/loopscope/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsMessage is one event on the WebSocket feed. Only the fields relevant
// to the event kind are set.
type wsMessage struct {
	At        string `json:"at"`
	Kind      string `json:"kind"`
	Iteration int    `json:"iteration,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// maxWSErrorLen caps how much of a failed tool result travels to the browser.
const maxWSErrorLen = 200

// wsMessageFor projects an event onto the wire shape the dashboard renders.
func wsMessageFor(ev *stream.Event) wsMessage {
	msg := wsMessage{
		At:   ev.ObservedAt.Format(time.RFC3339),
		Kind: string(ev.Kind),
	}
	switch ev.Kind {
	case stream.KindLoopMarker:
		msg.Iteration = ev.Iteration
	case stream.KindToolCall:
		msg.Tool = ev.ToolName
	case stream.KindText:
		msg.Text = ev.Text
	case stream.KindToolResult:
		if ev.Result.IsError {
			msg.IsError = true
			msg.Error = truncate(ev.Result.Content, maxWSErrorLen)
		}
	case stream.KindError:
		msg.Error = ev.Err
	}
	return msg
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// handleWebSocket upgrades to WebSocket and streams session events to the
// client. Errors are silent: the terminal belongs to the TUI.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	// Read pump, detects client disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	// Write pump.
	for ev := range sub {
		if err := conn.WriteJSON(wsMessageFor(ev)); err != nil {
			return
		}
	}
}
