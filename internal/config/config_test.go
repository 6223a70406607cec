package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"watch.glob", cfg.Watch.Glob, ""},
		{"watch.from_start", cfg.Watch.FromStart, false},
		{"watch.stall_after_seconds", cfg.Watch.StallAfterSeconds, 90},
		{"tui.accent_color", cfg.TUI.AccentColor, "#5FAFD7"},
		{"tui.log_lines", cfg.TUI.LogLines, 2000},
		{"web.enabled", cfg.Web.Enabled, false},
		{"web.addr", cfg.Web.Addr, "127.0.0.1:8787"},
		{"record.path", cfg.Record.Path, ""},
		{"record.keep", cfg.Record.Keep, 20},
		{"notifications.on_stall", cfg.Notifications.OnStall, true},
		{"notifications.on_error", cfg.Notifications.OnError, true},
		{"notifications.on_commit", cfg.Notifications.OnCommit, true},
		{"notifications.on_done", cfg.Notifications.OnDone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate cleanly, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "negative stall timeout",
			mutate:  func(c *Config) { c.Watch.StallAfterSeconds = -1 },
			wantSub: "watch.stall_after_seconds",
		},
		{
			name:    "malformed accent color",
			mutate:  func(c *Config) { c.TUI.AccentColor = "purple" },
			wantSub: "tui.accent_color",
		},
		{
			name:    "negative log lines",
			mutate:  func(c *Config) { c.TUI.LogLines = -5 },
			wantSub: "tui.log_lines",
		},
		{
			name: "enabled web with bare port",
			mutate: func(c *Config) {
				c.Web.Enabled = true
				c.Web.Addr = "8787"
			},
			wantSub: "web.addr",
		},
		{
			name:    "negative record keep",
			mutate:  func(c *Config) { c.Record.Keep = -1 },
			wantSub: "record.keep",
		},
		{
			name:    "notification URL without scheme",
			mutate:  func(c *Config) { c.Notifications.URL = "ntfy.sh/my-topic" },
			wantSub: "notifications.url",
		},
		{
			name:    "notification URL with wrong scheme",
			mutate:  func(c *Config) { c.Notifications.URL = "ftp://example.com/hook" },
			wantSub: "notifications.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should mention %q", err, tt.wantSub)
			}
		})
	}

	t.Run("disabled web skips addr check", func(t *testing.T) {
		cfg := Defaults()
		cfg.Web.Addr = "not an address"
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error when web is disabled, got %v", err)
		}
	})

	t.Run("empty accent color is allowed", func(t *testing.T) {
		cfg := Defaults()
		cfg.TUI.AccentColor = ""
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error for empty accent color, got %v", err)
		}
	})

	t.Run("multiple problems all reported", func(t *testing.T) {
		cfg := Defaults()
		cfg.Watch.StallAfterSeconds = -1
		cfg.TUI.AccentColor = "nope"
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected validation error")
		}
		for _, sub := range []string{"watch.stall_after_seconds", "tui.accent_color"} {
			if !strings.Contains(err.Error(), sub) {
				t.Errorf("error %q should mention %q", err, sub)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		dir := t.TempDir()
		content := `
[project]
name = "TestProject"

[watch]
glob = "logs/**/*.jsonl"
from_start = true
stall_after_seconds = 120

[tui]
accent_color = "#FF8800"
log_lines = 500

[web]
enabled = true
addr = "0.0.0.0:9000"

[record]
path = "out/session.jsonl"
keep = 5

[notifications]
url = "https://ntfy.sh/my-topic"
on_stall = false
on_error = false
on_commit = false
on_done = false
`
		path := filepath.Join(dir, "loopscope.toml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}

		tests := []struct {
			name string
			got  any
			want any
		}{
			{"project.name", cfg.Project.Name, "TestProject"},
			{"watch.glob", cfg.Watch.Glob, "logs/**/*.jsonl"},
			{"watch.from_start", cfg.Watch.FromStart, true},
			{"watch.stall_after_seconds", cfg.Watch.StallAfterSeconds, 120},
			{"tui.accent_color", cfg.TUI.AccentColor, "#FF8800"},
			{"tui.log_lines", cfg.TUI.LogLines, 500},
			{"web.enabled", cfg.Web.Enabled, true},
			{"web.addr", cfg.Web.Addr, "0.0.0.0:9000"},
			{"record.path", cfg.Record.Path, "out/session.jsonl"},
			{"record.keep", cfg.Record.Keep, 5},
			{"notifications.url", cfg.Notifications.URL, "https://ntfy.sh/my-topic"},
			{"notifications.on_stall", cfg.Notifications.OnStall, false},
			{"notifications.on_error", cfg.Notifications.OnError, false},
			{"notifications.on_commit", cfg.Notifications.OnCommit, false},
			{"notifications.on_done", cfg.Notifications.OnDone, false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if tt.got != tt.want {
					t.Errorf("got %v, want %v", tt.got, tt.want)
				}
			})
		}
	})

	t.Run("partial config uses defaults", func(t *testing.T) {
		dir := t.TempDir()
		content := `
[watch]
glob = "*.jsonl"
`
		path := filepath.Join(dir, "loopscope.toml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}

		if cfg.Watch.Glob != "*.jsonl" {
			t.Errorf("watch.glob: got %q, want %q", cfg.Watch.Glob, "*.jsonl")
		}
		if cfg.Watch.StallAfterSeconds != 90 {
			t.Errorf("watch.stall_after_seconds: got %d, want %d (default)", cfg.Watch.StallAfterSeconds, 90)
		}
		if cfg.TUI.AccentColor != DefaultAccentColor {
			t.Errorf("tui.accent_color: got %q, want %q (default)", cfg.TUI.AccentColor, DefaultAccentColor)
		}
	})

	t.Run("unknown keys return error", func(t *testing.T) {
		dir := t.TempDir()
		content := `
[watch]
glb = "*.jsonl"
`
		path := filepath.Join(dir, "loopscope.toml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := Load(path)
		if err == nil {
			t.Fatal("expected error for unknown key")
		}
		if !strings.Contains(err.Error(), "unknown keys") || !strings.Contains(err.Error(), "watch.glb") {
			t.Errorf("error should name the unknown key, got: %v", err)
		}
	})

	t.Run("missing file returns error", func(t *testing.T) {
		_, err := Load("/nonexistent/loopscope.toml")
		if err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid toml returns error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "loopscope.toml")
		if err := os.WriteFile(path, []byte("not valid [[[ toml"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := Load(path)
		if err == nil {
			t.Error("expected error for invalid TOML")
		}
	})
}

func TestLoadAutoDiscovery(t *testing.T) {
	t.Run("finds loopscope.toml in parent directory", func(t *testing.T) {
		root := t.TempDir()
		child := filepath.Join(root, "sub", "dir")
		if err := os.MkdirAll(child, 0755); err != nil {
			t.Fatal(err)
		}

		content := `[project]
name = "FoundIt"
`
		if err := os.WriteFile(filepath.Join(root, "loopscope.toml"), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		// Change to child directory to test walk-up
		origDir, _ := os.Getwd()
		t.Cleanup(func() { os.Chdir(origDir) })
		if err := os.Chdir(child); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Project.Name != "FoundIt" {
			t.Errorf("project.name: got %q, want %q", cfg.Project.Name, "FoundIt")
		}
	})

	t.Run("returns ErrNotFound when loopscope.toml not found anywhere", func(t *testing.T) {
		dir := t.TempDir()
		origDir, _ := os.Getwd()
		t.Cleanup(func() { os.Chdir(origDir) })
		if err := os.Chdir(dir); err != nil {
			t.Fatal(err)
		}

		_, err := Load("")
		if err == nil {
			t.Fatal("expected error when loopscope.toml not found")
		}
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestInitFile(t *testing.T) {
	t.Run("creates loopscope.toml", func(t *testing.T) {
		dir := t.TempDir()
		path, err := InitFile(dir)
		if err != nil {
			t.Fatal(err)
		}

		if filepath.Base(path) != "loopscope.toml" {
			t.Errorf("expected loopscope.toml, got %s", filepath.Base(path))
		}

		// Verify it's valid TOML by loading it
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("generated file is not valid: %v", err)
		}
		if cfg.TUI.AccentColor != DefaultAccentColor {
			t.Errorf("default accent: got %q, want %q", cfg.TUI.AccentColor, DefaultAccentColor)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("generated file should validate cleanly, got %v", err)
		}
	})

	t.Run("refuses to overwrite existing", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "loopscope.toml")
		if err := os.WriteFile(path, []byte("existing"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := InitFile(dir)
		if err == nil {
			t.Error("expected error when loopscope.toml already exists")
		}
	})
}
