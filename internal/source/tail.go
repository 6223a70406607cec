package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Tailer follows a single growing file and emits complete appended lines.
// Truncation restarts reading from the top; a removed or renamed file is
// given a few seconds to reappear before the tail gives up.
type Tailer struct {
	path      string
	fromStart bool
	out       chan string
}

// NewTailer creates a tailer for path. With fromStart the existing content
// is emitted first; otherwise tailing begins at the current end of file.
func NewTailer(path string, fromStart bool) *Tailer {
	return &Tailer{
		path:      path,
		fromStart: fromStart,
		out:       make(chan string, 512),
	}
}

// Lines returns the channel tailed lines are delivered on. It is closed
// when Start returns.
func (t *Tailer) Lines() <-chan string {
	return t.out
}

// Start opens the file and follows it until ctx is cancelled or the file is
// gone for good. Blocks for the duration of the tail.
func (t *Tailer) Start(ctx context.Context) error {
	defer close(t.out)

	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("source: open %s: %w", t.path, err)
	}
	defer func() { f.Close() }()

	var offset int64
	if !t.fromStart {
		if offset, err = f.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("source: seek %s: %w", t.path, err)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("source: watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(t.path); err != nil {
		return fmt.Errorf("source: watch %s: %w", t.path, err)
	}

	reader := bufio.NewReaderSize(f, 64*1024)
	var pending string

	// Content already past the start position.
	if err := t.drain(ctx, reader, &offset, &pending); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			switch {
			case ev.Op&fsnotify.Write != 0:
				if truncated(t.path, offset) {
					if _, err := f.Seek(0, io.SeekStart); err != nil {
						return fmt.Errorf("source: rewind %s: %w", t.path, err)
					}
					reader.Reset(f)
					offset, pending = 0, ""
				}
				if err := t.drain(ctx, reader, &offset, &pending); err != nil {
					return err
				}

			case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
				f.Close()
				nf, err := t.reopen(ctx)
				if err != nil {
					return err
				}
				if nf == nil {
					return nil
				}
				f = nf
				reader.Reset(f)
				offset, pending = 0, ""
				if err := w.Add(t.path); err != nil {
					return fmt.Errorf("source: rewatch %s: %w", t.path, err)
				}
				if err := t.drain(ctx, reader, &offset, &pending); err != nil {
					return err
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("source: watch %s: %w", t.path, err)
		}
	}
}

// drain reads everything available and emits complete lines. A trailing
// chunk without a newline is held back until the rest of the line arrives.
func (t *Tailer) drain(ctx context.Context, r *bufio.Reader, offset *int64, pending *string) error {
	for {
		chunk, err := r.ReadString('\n')
		*offset += int64(len(chunk))
		if strings.HasSuffix(chunk, "\n") {
			line := *pending + strings.TrimRight(chunk, "\r\n")
			*pending = ""
			select {
			case t.out <- line:
			case <-ctx.Done():
				return nil
			}
		} else if chunk != "" {
			*pending += chunk
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("source: read %s: %w", t.path, err)
		}
	}
}

// reopen polls for the file to come back after a rotation. Returns nil,nil
// when ctx is cancelled while waiting.
func (t *Tailer) reopen(ctx context.Context) (*os.File, error) {
	for i := 0; i < 5; i++ {
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(time.Second):
		}
		if f, err := os.Open(t.path); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("source: %s did not reappear after rotation", t.path)
}

func truncated(path string, offset int64) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() < offset
}
