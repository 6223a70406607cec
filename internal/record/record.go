// Package record persists monitored sessions: a JSONL transcript of every
// classified event, and a summary of the final session state for
// `loopscope last`.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Recorder appends transcript rows to a JSONL file. The file is synced
// after every line to guarantee durability across abrupt kills.
type Recorder struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// Open creates (or appends to) a transcript at path. If path has a .jsonl
// extension it is used directly; otherwise path is treated as a directory
// and a "<unix-timestamp>-<pid>.jsonl" session file is created inside it.
// In directory mode, at most keep session files are retained afterwards,
// counting the new one (0 = unlimited).
func Open(path string, keep int) (*Recorder, error) {
	target := path
	dirMode := filepath.Ext(path) != ".jsonl"
	if dirMode {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("record: mkdir %q: %w", path, err)
		}
		name := fmt.Sprintf("%d-%d.jsonl", time.Now().Unix(), os.Getpid())
		target = filepath.Join(path, name)
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("record: mkdir %q: %w", dir, err)
		}
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("record: open %q: %w", target, err)
	}

	if dirMode {
		if err := EnforceRetention(path, keep); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &Recorder{file: f, path: target}, nil
}

// Path returns the transcript file being written.
func (r *Recorder) Path() string {
	return r.path
}

// WriteLine appends one line and syncs. The trailing newline is added here;
// line should not contain one. Safe for concurrent use.
func (r *Recorder) WriteLine(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("record: write: %w", err)
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("record: sync: %w", err)
	}
	return nil
}

// Entry is one transcript row. Raw carries the original stream line
// verbatim.
type Entry struct {
	MonitorID string    `json:"monitor_id"`
	At        time.Time `json:"at"`
	Kind      string    `json:"kind"`
	Raw       string    `json:"raw"`
}

// WriteEvent marshals one transcript entry and appends it.
func (r *Recorder) WriteEvent(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("record: marshal entry: %w", err)
	}
	return r.WriteLine(string(data))
}

// Close closes the underlying file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

// EnforceRetention removes the oldest session transcripts in dir, keeping at
// most maxKeep files. If maxKeep is 0, no files are removed. Returns nil if
// dir does not exist or is empty.
func EnforceRetention(dir string, maxKeep int) error {
	if maxKeep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("record: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl") {
			files = append(files, e.Name())
		}
	}

	sort.Strings(files) // timestamp-prefixed names sort chronologically

	toDelete := len(files) - maxKeep
	for i := 0; i < toDelete; i++ {
		path := filepath.Join(dir, files[i])
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("record: remove %q: %w", path, err)
		}
	}
	return nil
}
