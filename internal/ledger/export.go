package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ExportStats writes AllStats as indented JSON to path.
func (l *Ledger) ExportStats(path string) error {
	data, err := json.MarshalIndent(l.AllStats(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding usage stats: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating export dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing usage stats: %w", err)
	}
	return nil
}
