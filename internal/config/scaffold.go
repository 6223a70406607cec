package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scaffold prepares a project directory for monitoring. It creates
// loopscope.toml, the .loopscope/ directory used for recordings, and a
// .gitignore entry excluding it from version control. Files that already
// exist are left untouched. Returns the list of created paths.
func Scaffold(dir string) ([]string, error) {
	var created []string

	// loopscope.toml
	tomlPath := filepath.Join(dir, "loopscope.toml")
	if _, err := os.Stat(tomlPath); os.IsNotExist(err) {
		if _, initErr := InitFile(dir); initErr != nil {
			return created, initErr
		}
		created = append(created, tomlPath)
	}

	// .loopscope/ directory for recordings
	scopeDir := filepath.Join(dir, ".loopscope")
	if _, err := os.Stat(scopeDir); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(scopeDir, 0755); mkErr != nil {
			return created, fmt.Errorf("scaffold: create %s: %w", scopeDir, mkErr)
		}
		created = append(created, scopeDir)
	}

	// .gitignore - keep recordings out of version control
	const gitignoreEntry = ".loopscope/"
	gitignorePath := filepath.Join(dir, ".gitignore")
	existing, err := os.ReadFile(gitignorePath)
	if os.IsNotExist(err) {
		if writeErr := os.WriteFile(gitignorePath, []byte(gitignoreEntry+"\n"), 0644); writeErr != nil {
			return created, fmt.Errorf("scaffold: write %s: %w", gitignorePath, writeErr)
		}
		created = append(created, gitignorePath)
	} else if err != nil {
		return created, fmt.Errorf("scaffold: read %s: %w", gitignorePath, err)
	} else if !strings.Contains(string(existing), gitignoreEntry) {
		content := string(existing)
		if len(content) > 0 && content[len(content)-1] != '\n' {
			content += "\n"
		}
		content += gitignoreEntry + "\n"
		if writeErr := os.WriteFile(gitignorePath, []byte(content), 0644); writeErr != nil {
			return created, fmt.Errorf("scaffold: write %s: %w", gitignorePath, writeErr)
		}
		created = append(created, gitignorePath)
	}

	return created, nil
}
