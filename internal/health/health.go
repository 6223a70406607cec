// Package health derives session liveness from stats activity timestamps
// and watches for stall transitions.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/loopscope/loopscope/internal/stats"
)

// Status describes the observed liveness of a session.
type Status string

const (
	// StatusIdle means no session activity has been observed yet.
	StatusIdle Status = "idle"
	// StatusRunning means activity was observed within the stall window.
	StatusRunning Status = "running"
	// StatusStalled means the session has gone quiet for at least the
	// stall window.
	StatusStalled Status = "stalled"
	// StatusDone means the event source closed. Assess never returns it;
	// the pipeline reports it when the stream ends.
	StatusDone Status = "done"
)

// Assess derives the session status from a stats snapshot. A session with no
// activity yet is idle; it still counts as stalled once the stall window has
// passed since monitoring started. stallAfter <= 0 disables stall detection.
func Assess(s stats.LoopStats, now time.Time, stallAfter time.Duration) Status {
	idle := s.LastActivity.IsZero()

	if stallAfter > 0 {
		last := s.LastActivity
		if last.IsZero() {
			last = s.StartedAt
		}
		if !last.IsZero() && now.Sub(last) >= stallAfter {
			return StatusStalled
		}
	}

	if idle {
		return StatusIdle
	}
	return StatusRunning
}

// Snapshotter is the part of the stats engine the Watcher needs.
type Snapshotter interface {
	Snapshot() stats.LoopStats
}

// Transition describes a status change observed by the Watcher.
type Transition struct {
	From Status
	To   Status
	At   time.Time
	// Quiet is how long the session had been without activity when the
	// transition was observed.
	Quiet time.Duration
}

// Watcher polls a stats engine and reports status transitions. The zero
// status before the first poll is idle.
type Watcher struct {
	engine     Snapshotter
	stallAfter time.Duration
	onChange   func(Transition)

	mu     sync.Mutex
	status Status
}

// NewWatcher creates a Watcher. onChange is called from the polling
// goroutine whenever the status changes; it may be nil.
func NewWatcher(engine Snapshotter, stallAfter time.Duration, onChange func(Transition)) *Watcher {
	return &Watcher{
		engine:     engine,
		stallAfter: stallAfter,
		onChange:   onChange,
		status:     StatusIdle,
	}
}

// Status returns the most recently derived status.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Run polls the engine until ctx is cancelled. The poll interval is a
// quarter of the stall window, so a stall is reported promptly after the
// window elapses. With stall detection disabled it still tracks the
// idle/running distinction at a slow cadence.
func (w *Watcher) Run(ctx context.Context) {
	interval := w.stallAfter / 4
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.evaluate(now)
		}
	}
}

func (w *Watcher) evaluate(now time.Time) {
	snap := w.engine.Snapshot()
	next := Assess(snap, now, w.stallAfter)

	w.mu.Lock()
	prev := w.status
	w.status = next
	w.mu.Unlock()

	if next == prev || w.onChange == nil {
		return
	}

	last := snap.LastActivity
	if last.IsZero() {
		last = snap.StartedAt
	}
	var quiet time.Duration
	if !last.IsZero() {
		quiet = now.Sub(last)
	}
	w.onChange(Transition{From: prev, To: next, At: now, Quiet: quiet})
}
