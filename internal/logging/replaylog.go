package logging

import (
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region sink
// Sink receives log entries in episode order. Implementations must not
// mutate an entry after accepting it.
type Sink interface {
	Append(entry state.LogEntry) error
}

type teeSink []Sink

func (t teeSink) Append(entry state.LogEntry) error {
	for _, s := range t {
		if err := s.Append(entry); err != nil {
			return err
		}
	}
	return nil
}

// Tee fans every entry out to sinks in order and stops at the first error.
func Tee(sinks ...Sink) Sink {
	return teeSink(sinks)
}

// #endregion sink

// #region replay-log
// ReplayLog is the in-memory, append-only replay log. It stores deep copies so
// later mutation by the caller cannot reach a recorded entry.
type ReplayLog struct {
	entries []state.LogEntry
}

// NewReplayLog returns an empty log.
func NewReplayLog() *ReplayLog {
	return &ReplayLog{}
}

// Append records entry. Episode ids must strictly increase.
func (l *ReplayLog) Append(entry state.LogEntry) error {
	if n := len(l.entries); n > 0 && entry.EpisodeID <= l.entries[n-1].EpisodeID {
		return fmt.Errorf("append log entry: episode %d after %d", entry.EpisodeID, l.entries[n-1].EpisodeID)
	}
	l.entries = append(l.entries, entry.Clone())
	return nil
}

// Len returns the number of recorded entries.
func (l *ReplayLog) Len() int {
	return len(l.entries)
}

// Entries returns copies of all entries in append order.
func (l *ReplayLog) Entries() []state.LogEntry {
	out := make([]state.LogEntry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Clone()
	}
	return out
}

// Entry returns a copy of the i-th entry.
func (l *ReplayLog) Entry(i int) (state.LogEntry, bool) {
	if i < 0 || i >= len(l.entries) {
		return state.LogEntry{}, false
	}
	return l.entries[i].Clone(), true
}

// Export serializes the log as a JSON array. Equal logs export to equal bytes.
func (l *ReplayLog) Export() ([]byte, error) {
	entries := l.entries
	if entries == nil {
		entries = []state.LogEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("export replay log: %w", err)
	}
	return data, nil
}

// #endregion replay-log
