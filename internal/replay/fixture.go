package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region fixture-loader

// LoadLog reads a JSON array of log entries, as written by
// logging.ReplayLog.Export, and validates every transition.
func LoadLog(path string) ([]state.LogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read log %s: %w", path, err)
	}
	return ParseLog(data)
}

// ParseLog decodes and validates an exported log.
func ParseLog(data []byte) ([]state.LogEntry, error) {
	var entries []state.LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse log: %w", err)
	}
	for i, e := range entries {
		if i > 0 && e.EpisodeID <= entries[i-1].EpisodeID {
			return nil, fmt.Errorf("parse log: entry %d: episode %d after %d", i, e.EpisodeID, entries[i-1].EpisodeID)
		}
		for _, tr := range e.EpisodeTrace {
			if err := state.ValidateTransition(tr); err != nil {
				return nil, fmt.Errorf("parse log: episode %d: %w", e.EpisodeID, err)
			}
		}
	}
	return entries, nil
}

// #endregion fixture-loader
