package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// collectLines receives n lines or fails the test.
func collectLines(t *testing.T, ch <-chan string, n int) []string {
	t.Helper()
	var got []string
	deadline := time.After(5 * time.Second)
	for len(got) < n {
		select {
		case line, ok := <-ch:
			if !ok {
				t.Fatalf("lines channel closed early, got %q", got)
			}
			got = append(got, line)
		case <-deadline:
			t.Fatalf("timed out waiting for %d lines, got %q", n, got)
		}
	}
	return got
}

func startTailer(t *testing.T, tl *Tailer) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tl.Start(ctx) }()
	return cancel, done
}

func waitStopped(t *testing.T, cancel context.CancelFunc, done chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tailer did not stop")
	}
}

func TestTailerFromStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	if err := os.WriteFile(path, []byte("one\ntwo\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tl := NewTailer(path, true)
	cancel, done := startTailer(t, tl)
	defer cancel()

	got := collectLines(t, tl.Lines(), 2)
	if got[0] != "one" || got[1] != "two" {
		t.Fatalf("initial lines = %q, want [one two]", got)
	}

	// Appends flow through, split writes reassembled.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("par"); err != nil {
		t.Fatalf("append: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := f.WriteString("tial\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	got = collectLines(t, tl.Lines(), 1)
	if got[0] != "partial" {
		t.Errorf("appended line = %q, want %q", got[0], "partial")
	}

	waitStopped(t, cancel, done)
}

func TestTailerSeekEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	if err := os.WriteFile(path, []byte("old\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tl := NewTailer(path, false)
	cancel, done := startTailer(t, tl)
	defer cancel()

	// Give the watch a moment to be established before appending.
	time.Sleep(200 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("new\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	got := collectLines(t, tl.Lines(), 1)
	if got[0] != "new" {
		t.Errorf("line = %q, want %q (existing content must be skipped)", got[0], "new")
	}

	waitStopped(t, cancel, done)
}

func TestTailerTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	if err := os.WriteFile(path, []byte("one\ntwo\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tl := NewTailer(path, true)
	cancel, done := startTailer(t, tl)
	defer cancel()

	collectLines(t, tl.Lines(), 2)

	if err := os.Truncate(path, 0); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("fresh\n"), 0644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got := collectLines(t, tl.Lines(), 1)
	if got[0] != "fresh" {
		t.Errorf("line after truncate = %q, want %q", got[0], "fresh")
	}

	waitStopped(t, cancel, done)
}

func TestTailerRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.log")
	if err := os.WriteFile(path, []byte("one\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tl := NewTailer(path, true)
	cancel, done := startTailer(t, tl)
	defer cancel()

	collectLines(t, tl.Lines(), 1)

	if err := os.Rename(path, filepath.Join(dir, "session.log.1")); err != nil {
		t.Fatalf("rename: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("fresh\n"), 0644); err != nil {
		t.Fatalf("recreate: %v", err)
	}

	got := collectLines(t, tl.Lines(), 1)
	if got[0] != "fresh" {
		t.Errorf("line after rotation = %q, want %q", got[0], "fresh")
	}

	waitStopped(t, cancel, done)
}

func TestTailerMissingFile(t *testing.T) {
	tl := NewTailer(filepath.Join(t.TempDir(), "absent.log"), true)
	if err := tl.Start(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
