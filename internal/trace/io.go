package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileName is the record name used inside an output directory.
func FileName(tr ExecutionTrace) string {
	ts := strings.ReplaceAll(tr.StartTime.UTC().Format(time.RFC3339Nano), ":", "-")
	return ts + "-" + tr.ID + ".json"
}

// SaveToDir writes tr into dir and returns the file path.
func SaveToDir(dir string, tr ExecutionTrace) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("trace: mkdir %q: %w", dir, err)
	}
	path := filepath.Join(dir, FileName(tr))
	return path, SaveToFile(path, tr)
}

func SaveToFile(path string, tr ExecutionTrace) error {
	b, err := json.MarshalIndent(tr, "", "    ")
	if err != nil {
		return fmt.Errorf("trace: marshal: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("trace: write %q: %w", path, err)
	}
	return nil
}

func LoadFromFile(path string) (ExecutionTrace, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ExecutionTrace{}, fmt.Errorf("trace: read %q: %w", path, err)
	}
	var tr ExecutionTrace
	if err := json.Unmarshal(b, &tr); err != nil {
		return ExecutionTrace{}, fmt.Errorf("trace: unmarshal %q: %w", path, err)
	}
	return tr, nil
}
