package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/loopscope/loopscope/internal/feed"
	"github.com/loopscope/loopscope/internal/git"
	"github.com/loopscope/loopscope/internal/health"
	"github.com/loopscope/loopscope/internal/stats"
	"github.com/loopscope/loopscope/internal/stream"
)

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *feed.Hub, *stats.Engine) {
	t.Helper()
	if opts.StallAfter == 0 {
		opts.StallAfter = 90 * time.Second
	}
	hub := feed.New()
	engine := stats.New()
	s := New(hub, engine, opts)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)
	return srv, hub, engine
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestDashboardAssets(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{Project: "demo"})

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/", "text/html; charset=utf-8", "<title>loopscope</title>"},
		{"/style.css", "text/css; charset=utf-8", "--accent"},
		{"/app.js", "application/javascript; charset=utf-8", "/api/stats"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
			}
			if ct := resp.Header.Get("Content-Type"); ct != tt.contentType {
				t.Errorf("content type = %q, want %q", ct, tt.contentType)
			}
			if !strings.Contains(body, tt.contains) {
				t.Errorf("body missing %q", tt.contains)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	srv, _, engine := newTestServer(t, Options{})

	decode := func(body string) map[string]any {
		t.Helper()
		var got map[string]any
		if err := json.Unmarshal([]byte(body), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	}

	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if got := decode(body); got["status"] != "idle" {
		t.Errorf("status before activity = %v, want %q", got["status"], "idle")
	}

	// A marker alone is not activity; the text event flips us to running.
	engine.Apply(&stream.Event{Kind: stream.KindLoopMarker, Iteration: 3})
	engine.Apply(&stream.Event{Kind: stream.KindText, Text: "compiling"})

	_, body = get(t, srv.URL+"/healthz")
	got := decode(body)
	if got["status"] != "running" {
		t.Errorf("status = %v, want %q", got["status"], "running")
	}
	if got["iteration"] != float64(3) {
		t.Errorf("iteration = %v, want 3", got["iteration"])
	}
}

func TestStatsAPI(t *testing.T) {
	srv, _, engine := newTestServer(t, Options{Project: "demo", Source: "agent.log"})

	engine.Apply(&stream.Event{Kind: stream.KindLoopMarker, Iteration: 2})
	engine.Apply(&stream.Event{
		Kind:      stream.KindToolCall,
		Assistant: true,
		ToolID:    "tc_1",
		ToolName:  "Bash",
		Calls:     []stream.ToolCall{{ID: "tc_1", Name: "Bash"}},
		Usage:     stream.Usage{InputTokens: 100, OutputTokens: 40},
	})

	resp, body := get(t, srv.URL+"/api/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got statsResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Project != "demo" {
		t.Errorf("project = %q, want %q", got.Project, "demo")
	}
	if got.Source != "agent.log" {
		t.Errorf("source = %q, want %q", got.Source, "agent.log")
	}
	if got.Status != health.StatusRunning {
		t.Errorf("status = %q, want %q", got.Status, health.StatusRunning)
	}
	if got.Stats.Iteration != 2 {
		t.Errorf("iteration = %d, want 2", got.Stats.Iteration)
	}
	if got.Stats.InputTokens != 100 {
		t.Errorf("input tokens = %d, want 100", got.Stats.InputTokens)
	}
	if got.Stats.Pending != 1 {
		t.Errorf("pending = %d, want 1", got.Stats.Pending)
	}
	if got.Repo != nil {
		t.Errorf("repo = %+v, want nil", got.Repo)
	}
}

func TestStatsAPIWithRepo(t *testing.T) {
	repo := &git.Context{Branch: "main", Head: "abc1234", Dirty: true, LastCommit: "abc1234 fix flaky test"}
	srv, _, _ := newTestServer(t, Options{
		Project: "demo",
		Repo:    func() *git.Context { return repo },
	})

	_, body := get(t, srv.URL+"/api/stats")
	var got statsResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Repo == nil {
		t.Fatal("repo missing from response")
	}
	if got.Repo.Branch != "main" || got.Repo.Head != "abc1234" || !got.Repo.Dirty {
		t.Errorf("repo = %+v", got.Repo)
	}
}

func TestStatsAPIAfterDone(t *testing.T) {
	hub := feed.New()
	engine := stats.New()
	s := New(hub, engine, Options{Project: "demo", StallAfter: 90 * time.Second})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)

	engine.Apply(&stream.Event{Kind: stream.KindText, Assistant: true, Text: "wrapping up"})
	s.MarkDone()

	_, body := get(t, srv.URL+"/api/stats")
	var got statsResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != health.StatusDone {
		t.Errorf("status = %q, want %q", got.Status, health.StatusDone)
	}
}

func TestWebSocketFeed(t *testing.T) {
	srv, hub, _ := newTestServer(t, Options{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	// Wait for the handler to attach before publishing.
	for deadline := time.Now().Add(2 * time.Second); hub.Subscribers() == 0; {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	hub.Publish(&stream.Event{Kind: stream.KindLoopMarker, Iteration: 7, ObservedAt: at})
	hub.Publish(&stream.Event{Kind: stream.KindToolCall, ToolName: "Edit", ObservedAt: at})
	hub.Publish(&stream.Event{
		Kind:       stream.KindToolResult,
		Result:     stream.ToolResult{ID: "tc_1", Content: "exit status 1", IsError: true},
		ObservedAt: at,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first wsMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first message: %v", err)
	}
	if first.Kind != "loop_marker" || first.Iteration != 7 {
		t.Errorf("first = %+v, want loop_marker iteration 7", first)
	}
	if first.At != "2026-03-14T09:30:00Z" {
		t.Errorf("at = %q, want RFC3339 timestamp", first.At)
	}

	var second wsMessage
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read second message: %v", err)
	}
	if second.Kind != "tool_call" || second.Tool != "Edit" {
		t.Errorf("second = %+v, want tool_call Edit", second)
	}

	var third wsMessage
	if err := conn.ReadJSON(&third); err != nil {
		t.Fatalf("read third message: %v", err)
	}
	if !third.IsError || third.Error != "exit status 1" {
		t.Errorf("third = %+v, want failed tool result", third)
	}
}

func TestWebSocketDisconnectUnsubscribes(t *testing.T) {
	srv, hub, _ := newTestServer(t, Options{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitFor := func(want int, desc string) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for hub.Subscribers() != want {
			if time.Now().After(deadline) {
				t.Fatalf("%s: subscribers = %d, want %d", desc, hub.Subscribers(), want)
			}
			// The handler only notices the disconnect on a failed write.
			hub.Publish(&stream.Event{Kind: stream.KindText, Text: "tick"})
			time.Sleep(10 * time.Millisecond)
		}
	}

	waitFor(1, "after dial")
	conn.Close()
	waitFor(0, "after close")
}

func TestWSMessageFor(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		ev   *stream.Event
		want wsMessage
	}{
		{
			name: "loop marker",
			ev:   &stream.Event{Kind: stream.KindLoopMarker, Iteration: 4, ObservedAt: at},
			want: wsMessage{At: "2026-03-14T09:30:00Z", Kind: "loop_marker", Iteration: 4},
		},
		{
			name: "tool call",
			ev:   &stream.Event{Kind: stream.KindToolCall, ToolName: "Grep", ObservedAt: at},
			want: wsMessage{At: "2026-03-14T09:30:00Z", Kind: "tool_call", Tool: "Grep"},
		},
		{
			name: "text",
			ev:   &stream.Event{Kind: stream.KindText, Text: "thinking", ObservedAt: at},
			want: wsMessage{At: "2026-03-14T09:30:00Z", Kind: "text", Text: "thinking"},
		},
		{
			name: "ok tool result carries no payload",
			ev:   &stream.Event{Kind: stream.KindToolResult, Result: stream.ToolResult{Content: "done"}, ObservedAt: at},
			want: wsMessage{At: "2026-03-14T09:30:00Z", Kind: "tool_result"},
		},
		{
			name: "failed tool result",
			ev: &stream.Event{
				Kind:       stream.KindToolResult,
				Result:     stream.ToolResult{Content: "no such file", IsError: true},
				ObservedAt: at,
			},
			want: wsMessage{At: "2026-03-14T09:30:00Z", Kind: "tool_result", Error: "no such file", IsError: true},
		},
		{
			name: "error",
			ev:   &stream.Event{Kind: stream.KindError, Err: "read: connection reset", ObservedAt: at},
			want: wsMessage{At: "2026-03-14T09:30:00Z", Kind: "error", Error: "read: connection reset"},
		},
		{
			name: "long failure content is truncated",
			ev: &stream.Event{
				Kind:       stream.KindToolResult,
				Result:     stream.ToolResult{Content: strings.Repeat("x", 500), IsError: true},
				ObservedAt: at,
			},
			want: wsMessage{
				At: "2026-03-14T09:30:00Z", Kind: "tool_result",
				Error: strings.Repeat("x", maxWSErrorLen) + "...", IsError: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wsMessageFor(tt.ev)
			if got != tt.want {
				t.Errorf("wsMessageFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPprofExposed(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})
	resp, body := get(t, srv.URL+"/debug/pprof/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(body, "goroutine") {
		t.Error("pprof index missing goroutine profile")
	}
}
