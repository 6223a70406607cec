package source

import (
	"fmt"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Newest resolves a glob pattern (recursive ** supported) and returns the
// most recently modified matching file. Agent session logs are written one
// per run, so the newest match is the live one.
func Newest(pattern string) (string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return "", fmt.Errorf("source: expand glob %q: %w", pattern, err)
	}

	var newest string
	var newestMod time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = m
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("source: no files match %q", pattern)
	}
	return newest, nil
}
