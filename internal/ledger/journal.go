package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/theirongolddev/bmadchat/internal/model"
)

// Entry is one line of the usage journal.
type Entry struct {
	Timestamp      time.Time `json:"ts"`
	ConversationID string    `json:"conversation_id"`
	AgentID        string    `json:"agent_id,omitempty"`
	model.UsageRecord
}

// Journal is an append-only JSONL file of recorded usage. It lets the usage
// command rebuild a ledger for past sessions without a database.
type Journal struct {
	mu   sync.Mutex
	path string
}

// NewJournal returns a journal backed by path. The file is created on the
// first append.
func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the journal file location.
func (j *Journal) Path() string { return j.path }

// Append writes e as one line.
func (j *Journal) Append(e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding journal entry: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("creating journal dir: %w", err)
	}
	f, err := os.OpenFile(j.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing journal: %w", err)
	}
	return f.Close()
}

// Clear removes the journal file.
func (j *Journal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.Remove(j.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing journal: %w", err)
	}
	return nil
}

// ReplayResult summarizes a journal replay.
type ReplayResult struct {
	Records     int
	ParseErrors int
	Rejected    int
}

// Replay feeds every journal line into l at its original timestamp.
// Malformed lines are counted and skipped; a missing file replays nothing.
func (j *Journal) Replay(l *Ledger) (ReplayResult, error) {
	var res ReplayResult

	f, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, nil
		}
		return res, fmt.Errorf("opening journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			res.ParseErrors++
			continue
		}
		if err := l.RecordAt(e.ConversationID, e.UsageRecord, e.Timestamp); err != nil {
			res.Rejected++
			continue
		}
		res.Records++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("reading journal: %w", err)
	}
	return res, nil
}
