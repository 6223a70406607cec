// Package config parses loopscope.toml monitor configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultAccentColor is the default TUI accent color (sky blue).
const DefaultAccentColor = "#5FAFD7"

// hexColorRe matches a 6-digit hex color string like "#5FAFD7".
var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ErrNotFound reports that no loopscope.toml exists in the search path.
// Monitoring works without one, so callers typically fall back to Defaults.
var ErrNotFound = errors.New("config: loopscope.toml not found")

// Config is the top-level loopscope.toml configuration.
type Config struct {
	Project       ProjectConfig       `toml:"project"`
	Watch         WatchConfig         `toml:"watch"`
	TUI           TUIConfig           `toml:"tui"`
	Web           WebConfig           `toml:"web"`
	Record        RecordConfig        `toml:"record"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// ProjectConfig identifies the project whose sessions are monitored.
type ProjectConfig struct {
	Name string `toml:"name"`
}

// WatchConfig controls how session logs are located and followed.
type WatchConfig struct {
	Glob              string `toml:"glob"`
	FromStart         bool   `toml:"from_start"`
	StallAfterSeconds int    `toml:"stall_after_seconds"` // 0 = no stall detection
}

// TUIConfig controls the terminal UI appearance.
type TUIConfig struct {
	AccentColor string `toml:"accent_color"`
	LogLines    int    `toml:"log_lines"` // feed lines kept in the scrollback
}

// WebConfig controls the embedded web dashboard.
type WebConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// RecordConfig controls transcript recording.
type RecordConfig struct {
	Path string `toml:"path"` // empty = disabled
	Keep int    `toml:"keep"` // transcripts kept when path is a directory; 0 = unlimited
}

// NotificationsConfig controls webhook/ntfy.sh notifications.
type NotificationsConfig struct {
	URL      string `toml:"url"`
	OnStall  bool   `toml:"on_stall"`
	OnError  bool   `toml:"on_error"`
	OnCommit bool   `toml:"on_commit"`
	OnDone   bool   `toml:"on_done"`
}

// Validate checks the configuration for issues that would cause confusing
// runtime failures. It returns all found issues joined together.
func (c *Config) Validate() error {
	var errs []error

	if c.Watch.StallAfterSeconds < 0 {
		errs = append(errs, fmt.Errorf("watch.stall_after_seconds must be >= 0 (0 = no stall detection)"))
	}

	if c.TUI.AccentColor != "" && !hexColorRe.MatchString(c.TUI.AccentColor) {
		errs = append(errs, fmt.Errorf("tui.accent_color must be a hex color (e.g. \"#5FAFD7\")"))
	}
	if c.TUI.LogLines < 0 {
		errs = append(errs, fmt.Errorf("tui.log_lines must be >= 0"))
	}

	if c.Web.Enabled {
		if _, _, err := net.SplitHostPort(c.Web.Addr); err != nil {
			errs = append(errs, fmt.Errorf("web.addr must be a host:port address (e.g. \"127.0.0.1:8787\")"))
		}
	}

	if c.Record.Keep < 0 {
		errs = append(errs, fmt.Errorf("record.keep must be >= 0 (0 = unlimited)"))
	}

	if c.Notifications.URL != "" {
		u, parseErr := url.ParseRequestURI(c.Notifications.URL)
		if parseErr != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("notifications.url must be a valid http or https URL"))
		}
	}

	return errors.Join(errs...)
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Project: ProjectConfig{Name: ""},
		Watch: WatchConfig{
			Glob:              "",
			FromStart:         false,
			StallAfterSeconds: 90,
		},
		TUI: TUIConfig{
			AccentColor: DefaultAccentColor,
			LogLines:    2000,
		},
		Web: WebConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8787",
		},
		Record: RecordConfig{Path: "", Keep: 20},
		Notifications: NotificationsConfig{
			URL:      "",
			OnStall:  true,
			OnError:  true,
			OnCommit: true,
			OnDone:   true,
		},
	}
}

// Load reads loopscope.toml from the given path. If path is empty, it walks
// up from the current working directory looking for loopscope.toml. Returns
// an error if the file contains unknown keys (likely typos).
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s (possible typos?)", path, joinKeys(keys))
	}

	if cfg.Project.Name == "" {
		cfg.Project.Name = DetectProjectName(filepath.Dir(path))
	}

	return &cfg, nil
}

// joinKeys formats a slice of key names for display.
func joinKeys(keys []string) string {
	return strings.Join(keys, ", ")
}

// findConfig walks up from the current directory looking for loopscope.toml.
func findConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, "loopscope.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched up from %s)", ErrNotFound, dir)
		}
		dir = parent
	}
}

// InitFile writes a default loopscope.toml template to the given directory.
func InitFile(dir string) (string, error) {
	path := filepath.Join(dir, "loopscope.toml")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config: loopscope.toml already exists at %s", path)
	}

	content := `# loopscope.toml - agent session monitor configuration
# Place this file in the root of the project you are monitoring.

[project]
name = ""  # shown in the TUI header; inferred from the project dir if empty

[watch]
glob = ""                 # e.g. "logs/**/*.jsonl"; newest match is followed
from_start = false        # replay the whole file before following new lines
stall_after_seconds = 90  # report the session stalled after this long idle; 0 = off

[tui]
accent_color = "#5FAFD7"  # hex color for header/accent elements
log_lines = 2000          # feed lines kept in the scrollback

[web]
enabled = false           # serve the web dashboard alongside the TUI
addr = "127.0.0.1:8787"

[record]
path = ""  # write the session transcript here; a directory gets per-session files
keep = 20  # session transcripts kept when path is a directory; 0 = unlimited

[notifications]
url = ""          # ntfy.sh topic URL or any HTTP webhook (empty = disabled)
on_stall = true   # notify when the session stalls
on_error = true   # notify on the first tool error of a session
on_commit = true  # notify when the agent commits or pushes
on_done = true    # notify when the stream ends
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("config: write %s: %w", path, err)
	}
	return path, nil
}
