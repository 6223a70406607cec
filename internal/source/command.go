package source

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/loopscope/loopscope/internal/stream"
)

// Command spawns the monitored agent process and classifies its output.
type Command struct {
	// Name is the executable to run; Args are its arguments.
	Name string
	Args []string
	// Dir is the working directory for the process. Empty means inherit.
	Dir string
}

// Run starts the process and streams classified events from its stdout. The
// channel closes when the process exits. An abnormal exit arrives as a final
// error event carrying the process's stderr, unless ctx cancellation caused
// the exit.
func (c *Command) Run(ctx context.Context) (<-chan *stream.Event, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("source: stdout pipe: %w", err)
	}
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("source: start %s: %w", c.Name, err)
	}

	ch := make(chan *stream.Event, 64)
	go func() {
		defer close(ch)
		for line := range Lines(ctx, stdout) {
			if ev := stream.Classify(line); ev != nil {
				ch <- ev
			}
		}
		if err := cmd.Wait(); err != nil {
			// A kill through ctx is the caller's request, not a failure.
			if ctx.Err() == nil {
				msg := fmt.Sprintf("%s exited: %v", c.Name, err)
				if detail := strings.TrimSpace(stderrBuf.String()); detail != "" {
					msg = fmt.Sprintf("%s: %s", msg, detail)
				}
				ch <- stream.ErrorEvent(msg)
			}
		}
	}()
	return ch, nil
}
