package audit

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

var csvHeader = []string{"ts", "actor", "action", "resource", "status", "error"}

// ExportFile converts the JSONL log at inputPath into a CSV file.
func ExportFile(inputPath, outputPath string) (int, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("open audit log: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create csv: %w", err)
	}
	n, err := WriteCSV(in, out)
	if cErr := out.Close(); err == nil && cErr != nil {
		err = fmt.Errorf("close csv: %w", cErr)
	}
	return n, err
}

// WriteCSV streams JSONL events from r to w and returns the row count.
// Blank lines are skipped; an optional action filter keeps matching rows only.
func WriteCSV(r io.Reader, w io.Writer, actions ...string) (int, error) {
	keep := make(map[string]bool, len(actions))
	for _, a := range actions {
		keep[a] = true
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	rows := 0
	s := bufio.NewScanner(r)
	for line := 1; s.Scan(); line++ {
		b := s.Bytes()
		if len(b) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(b, &ev); err != nil {
			return rows, fmt.Errorf("parse audit line %d: %w", line, err)
		}
		if len(keep) > 0 && !keep[ev.Action] {
			continue
		}
		if err := cw.Write([]string{ev.Timestamp, ev.Actor, ev.Action, ev.Resource, ev.Status, ev.Error}); err != nil {
			return rows, fmt.Errorf("write csv row: %w", err)
		}
		rows++
	}
	if err := s.Err(); err != nil {
		return rows, fmt.Errorf("scan audit log: %w", err)
	}
	cw.Flush()
	return rows, cw.Error()
}
