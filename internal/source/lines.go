// Package source delivers complete output lines from the places a session
// stream can come from: an io.Reader, a growing log file, or a spawned
// agent process. Chunk reassembly into whole lines happens here, so
// consumers never see a partial line.
package source

import (
	"bufio"
	"context"
	"io"
)

// Lines reads newline-delimited text from r and sends each complete line on
// the returned channel. The channel closes at EOF or when ctx is cancelled.
func Lines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string, 64)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		// Allow up to 1MB lines (tool results can be large)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case ch <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
