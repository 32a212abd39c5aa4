package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

// WriteJSON writes a suite summary or a validation result, creating the
// parent directory when needed.
func WriteJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(raw, '\n'))
}

func ReadSummary(path string) (types.SuiteSummary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.SuiteSummary{}, fmt.Errorf("read summary %s: %w", path, err)
	}
	var s types.SuiteSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return types.SuiteSummary{}, fmt.Errorf("parse summary %s: %w", path, err)
	}
	return s, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
