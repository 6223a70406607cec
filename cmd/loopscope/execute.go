package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loopscope/loopscope/internal/config"
	"github.com/loopscope/loopscope/internal/git"
	"github.com/loopscope/loopscope/internal/record"
	"github.com/loopscope/loopscope/internal/source"
	"github.com/loopscope/loopscope/internal/stats"
)

// scopeDir holds transcripts and the session summary, relative to the
// working directory.
const scopeDir = ".loopscope"

// loadConfig loads loopscope.toml if one is discoverable, falling back to
// defaults when none exists. A malformed file is an error either way.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load("")
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			defaults := config.Defaults()
			if wd, wdErr := os.Getwd(); wdErr == nil {
				defaults.Project.Name = config.DetectProjectName(wd)
			}
			return &defaults, nil
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// presentationOpts are the resolved output choices shared by watch and run.
type presentationOpts struct {
	noTUI      bool
	serveAddr  string // "" = dashboard off
	recordPath string // "" = transcript off
	repoDir    string // "" = detect the working directory
}

// presentationFrom merges the shared output flags with config defaults.
// Explicit flags win, including an explicit empty string to switch a
// surface off.
func presentationFrom(cmd *cobra.Command, cfg *config.Config) presentationOpts {
	flags := cmd.Flags()
	var opts presentationOpts
	opts.noTUI, _ = flags.GetBool("no-tui")

	if cfg.Web.Enabled {
		opts.serveAddr = cfg.Web.Addr
	}
	if flags.Changed("serve") {
		opts.serveAddr, _ = flags.GetString("serve")
	}

	opts.recordPath = cfg.Record.Path
	if flags.Changed("record") {
		opts.recordPath, _ = flags.GetString("record")
	}

	opts.repoDir, _ = flags.GetString("repo")
	return opts
}

// detectRepo returns a git runner for dir (default: working directory) when
// it is inside a repository, nil otherwise. Monitoring works without one.
func detectRepo(dir string) *git.Runner {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil
		}
		dir = wd
	}
	r := git.NewRunner(dir)
	if !r.IsRepo() {
		return nil
	}
	return r
}

// watchSource is the resolved input for `loopscope watch`.
type watchSource struct {
	path  string // file to tail; empty means read stdin
	stdin bool
}

// resolveWatchSource picks what to follow: an explicit file argument beats a
// glob (flag beats config), and with neither the piped stdin is used.
func resolveWatchSource(fileArg, globFlag, cfgGlob string, stdinPiped bool) (watchSource, error) {
	if fileArg != "" {
		return watchSource{path: fileArg}, nil
	}

	pattern := globFlag
	if pattern == "" {
		pattern = cfgGlob
	}
	if pattern != "" {
		path, err := source.Newest(pattern)
		if err != nil {
			return watchSource{}, err
		}
		return watchSource{path: path}, nil
	}

	if stdinPiped {
		return watchSource{stdin: true}, nil
	}
	return watchSource{}, errors.New("nothing to watch: pass a file, set --glob, or pipe input")
}

// stdinPiped reports whether stdin is a pipe or file rather than the
// terminal.
func stdinPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

func executeWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := presentationFrom(cmd, cfg)

	globFlag, _ := cmd.Flags().GetString("glob")
	fromStart := cfg.Watch.FromStart
	if cmd.Flags().Changed("from-start") {
		fromStart, _ = cmd.Flags().GetBool("from-start")
	}

	var fileArg string
	if len(args) > 0 {
		fileArg = args[0]
	}
	src, err := resolveWatchSource(fileArg, globFlag, cfg.Watch.Glob, stdinPiped())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	registerQuitHandler()

	engine := stats.New()

	if src.stdin {
		events := lineEvents(engine, source.Lines(ctx, os.Stdin))
		return runMonitor(ctx, cancel, cfg, opts, engine, "stdin", events, nil)
	}

	tailer := source.NewTailer(src.path, fromStart)
	tailErr := make(chan error, 1)
	go func() { tailErr <- tailer.Start(ctx) }()
	events := lineEvents(engine, tailer.Lines())
	return runMonitor(ctx, cancel, cfg, opts, engine, src.path, events, tailErr)
}

func executeRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := presentationFrom(cmd, cfg)

	ctx, cancel := signalContext()
	defer cancel()
	registerQuitHandler()

	engine := stats.New()

	agent := &source.Command{Name: args[0], Args: args[1:]}
	raw, err := agent.Run(ctx)
	if err != nil {
		return err
	}
	label := strings.Join(args, " ")
	return runMonitor(ctx, cancel, cfg, opts, engine, label, commandEvents(engine, raw), nil)
}

// showLast prints the summary written when the previous monitor exited.
func showLast() error {
	s, err := record.LoadSummary(scopeDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println("No previous session found. Run 'loopscope watch' or 'loopscope run' first.")
			return nil
		}
		return err
	}
	fmt.Print(formatSummary(s))
	return nil
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()
	return ctx, cancel
}
