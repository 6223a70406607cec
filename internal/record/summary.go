package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/loopscope/loopscope/internal/stats"
)

// Summary captures the final state of a monitored session, persisted to
// .loopscope/summary.json and shown by `loopscope last`.
type Summary struct {
	MonitorID string          `json:"monitor_id"`
	Project   string          `json:"project"`
	Source    string          `json:"source"` // watched file or spawned command
	Status    string          `json:"status"` // health status at exit
	EndedAt   time.Time       `json:"ended_at"`
	Stats     stats.LoopStats `json:"stats"`
}

// summaryFileName is the path within the .loopscope directory.
const summaryFileName = "summary.json"

// LoadSummary reads the previous session summary from dir.
func LoadSummary(dir string) (Summary, error) {
	path := filepath.Join(dir, summaryFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Summary{}, fmt.Errorf("record: no summary at %s: %w", path, err)
		}
		return Summary{}, fmt.Errorf("record: read summary: %w", err)
	}

	var s Summary
	if jsonErr := json.Unmarshal(data, &s); jsonErr != nil {
		return Summary{}, fmt.Errorf("record: parse summary: %w", jsonErr)
	}
	return s, nil
}

// SaveSummary writes the session summary to summary.json in dir. Creates dir
// if it does not exist. Uses a write-then-rename pattern so concurrent
// readers never observe a partially-written file.
func SaveSummary(dir string, s Summary) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("record: create summary dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("record: marshal summary: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".summary-*.tmp")
	if err != nil {
		return fmt.Errorf("record: create temp summary: %w", err)
	}
	if _, writeErr := tmp.Write(data); writeErr != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("record: write summary: %w", writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("record: close summary: %w", closeErr)
	}
	path := filepath.Join(dir, summaryFileName)
	if renameErr := os.Rename(tmp.Name(), path); renameErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("record: finalize summary: %w", renameErr)
	}
	return nil
}
