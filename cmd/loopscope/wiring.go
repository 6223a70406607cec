package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/loopscope/loopscope/internal/config"
	"github.com/loopscope/loopscope/internal/feed"
	"github.com/loopscope/loopscope/internal/git"
	"github.com/loopscope/loopscope/internal/health"
	"github.com/loopscope/loopscope/internal/notify"
	"github.com/loopscope/loopscope/internal/record"
	"github.com/loopscope/loopscope/internal/stats"
	"github.com/loopscope/loopscope/internal/stream"
	"github.com/loopscope/loopscope/internal/tui"
	"github.com/loopscope/loopscope/internal/web"
)

// lineEvents classifies raw lines through the engine and forwards the
// resulting events. Stats are updated before an event is forwarded, so
// consumers rendering on arrival always see the event already counted.
// The returned channel closes when lines closes.
func lineEvents(engine *stats.Engine, lines <-chan string) <-chan *stream.Event {
	out := make(chan *stream.Event, 64)
	go func() {
		defer close(out)
		for line := range lines {
			if ev := engine.ProcessLine(line); ev != nil {
				out <- ev
			}
		}
	}()
	return out
}

// commandEvents applies pre-classified events to the engine and forwards
// them, mirroring lineEvents for the spawned-process source.
func commandEvents(engine *stats.Engine, in <-chan *stream.Event) <-chan *stream.Event {
	out := make(chan *stream.Event, 64)
	go func() {
		defer close(out)
		for ev := range in {
			engine.Apply(ev)
			out <- ev
		}
	}()
	return out
}

// runMonitor drives the shared pipeline: classified events fan out to the
// hub (feeding the TUI and web dashboard), the transcript recorder, and the
// notifier; a session summary is written when monitoring ends.
//
// cancel stops the event source; it is invoked once the foreground UI
// returns so a user quit unwinds the whole pipeline. tailErr may be nil;
// when set it delivers the tailer's exit error after events closes.
func runMonitor(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, opts presentationOpts, engine *stats.Engine, sourceLabel string, events <-chan *stream.Event, tailErr <-chan error) error {
	hub := feed.New()
	stallAfter := time.Duration(cfg.Watch.StallAfterSeconds) * time.Second

	notifier := notify.New(cfg.Notifications.URL, cfg.Project.Name,
		cfg.Notifications.OnStall, cfg.Notifications.OnError,
		cfg.Notifications.OnCommit, cfg.Notifications.OnDone)
	notifier.Send(notify.EventStart, fmt.Sprintf("Monitoring %s", sourceLabel))

	var recorder *record.Recorder
	if opts.recordPath != "" {
		r, err := record.Open(opts.recordPath, cfg.Record.Keep)
		if err != nil {
			return err
		}
		recorder = r
		defer recorder.Close()
	}

	repo := detectRepo(opts.repoDir)
	var repoCtx func() *git.Context
	if repo != nil {
		repoCtx = func() *git.Context {
			snap, err := repo.Snapshot()
			if err != nil {
				return nil
			}
			return &snap
		}
	}

	// The watcher gets its own context so stall polling stops when the
	// source ends, not only when the process does. A finished session
	// going quiet is not a stall.
	watchCtx, stopWatcher := context.WithCancel(ctx)
	defer stopWatcher()
	watcher := health.NewWatcher(engine, stallAfter, func(tr health.Transition) {
		switch {
		case tr.To == health.StatusStalled:
			notifier.Send(notify.EventStall, fmt.Sprintf("No output for %s", tr.Quiet.Round(time.Second)))
		case tr.From == health.StatusStalled && tr.To == health.StatusRunning:
			notifier.Send(notify.EventResume, "Output resumed")
		}
	})
	go watcher.Run(watchCtx)

	var srv *web.Server
	var webErrCh chan error
	if opts.serveAddr != "" {
		srv = web.New(hub, engine, web.Options{
			Project:    cfg.Project.Name,
			Source:     sourceLabel,
			Addr:       opts.serveAddr,
			StallAfter: stallAfter,
			Repo:       repoCtx,
		})
		webErrCh = make(chan error, 1)
		go func() { webErrCh <- srv.Start(ctx) }()
	}

	// Subscribe the foreground UI before the pump starts so it cannot miss
	// early events.
	uiSub := hub.Subscribe()

	var (
		sourceEnded bool
		srcFailure  error
		recordErr   error
	)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		var sawError bool
		// Zero baseline: producers apply events to the engine concurrently,
		// so a commit may land before the pump's first look.
		var lastCommit time.Time

		for ev := range events {
			if recorder != nil {
				if err := recorder.WriteEvent(record.Entry{
					MonitorID: notifier.MonitorID(),
					At:        ev.ObservedAt,
					Kind:      string(ev.Kind),
					Raw:       ev.Raw,
				}); err != nil && recordErr == nil {
					recordErr = err
				}
			}

			if !sawError && (ev.Kind == stream.KindError || (ev.Kind == stream.KindToolResult && ev.Result.IsError)) {
				sawError = true
				notifier.Send(notify.EventError, firstErrorMessage(ev))
			}

			if ev.Kind == stream.KindToolResult {
				if snap := engine.Snapshot(); snap.LastCommit.After(lastCommit) {
					lastCommit = snap.LastCommit
					notifier.Send(notify.EventCommit, commitMessage(repo))
				}
			}

			hub.Publish(ev)
		}

		stopWatcher()
		if tailErr != nil {
			srcFailure = <-tailErr
		}
		if ctx.Err() == nil && srcFailure == nil {
			sourceEnded = true
			if srv != nil {
				srv.MarkDone()
			}
			snap := engine.Snapshot()
			notifier.Send(notify.EventDone, fmt.Sprintf("Stream ended after iteration %d", snap.Iteration))
		}
		hub.Close()
	}()

	var uiErr error
	if opts.noTUI {
		drainEvents(uiSub)
	} else {
		uiErr = tui.Run(ctx, engine, uiSub, tui.Options{
			Project:     cfg.Project.Name,
			Source:      sourceLabel,
			AccentColor: cfg.TUI.AccentColor,
			StallAfter:  stallAfter,
			LogLines:    cfg.TUI.LogLines,
			Repo:        repoCtx,
		})
	}

	cancel()
	<-pumpDone

	snap := engine.Snapshot()
	status := health.Assess(snap, time.Now(), stallAfter)
	if sourceEnded {
		status = health.StatusDone
	}
	summary := record.Summary{
		MonitorID: notifier.MonitorID(),
		Project:   cfg.Project.Name,
		Source:    sourceLabel,
		Status:    string(status),
		EndedAt:   time.Now(),
		Stats:     snap,
	}
	if err := record.SaveSummary(scopeDir, summary); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if recordErr != nil {
		fmt.Fprintln(os.Stderr, recordErr)
	}

	if opts.noTUI {
		fmt.Print(formatSummary(summary))
	}

	if srcFailure != nil {
		return srcFailure
	}
	if uiErr != nil {
		return uiErr
	}
	if webErrCh != nil {
		select {
		case err := <-webErrCh:
			if err != nil {
				return err
			}
		default:
		}
	}
	return nil
}

// drainEvents prints classified events as plain lines until the feed
// closes.
func drainEvents(sub <-chan *stream.Event) {
	for ev := range sub {
		fmt.Println(formatEventLine(ev))
	}
}

// firstErrorMessage summarizes the event that triggered the first-error
// notification.
func firstErrorMessage(ev *stream.Event) string {
	if ev.Kind == stream.KindError {
		return ev.Err
	}
	return flatten(ev.Result.Content)
}

// commitMessage resolves the short SHA and subject of the commit just
// detected, with a generic fallback when the repo cannot say.
func commitMessage(repo *git.Runner) string {
	if repo != nil {
		if subject, err := repo.LastCommit(); err == nil && subject != "" {
			return subject
		}
	}
	return "Commit detected"
}
