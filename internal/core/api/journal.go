package api

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// journalEntry is one line of the daily call journal.
type journalEntry struct {
	CallID     string `json:"call_id"`
	SessionID  string `json:"session_id"`
	ClientID   string `json:"client_id,omitempty"`
	Method     string `json:"method"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationUs int64  `json:"duration_us"`
	Timestamp  string `json:"ts"`
}

// journal appends call entries to <dir>/YYYY-MM-DD.jsonl.
// Best-effort debugging aid; the calls table is authoritative.
type journal struct {
	dir string

	mu      sync.Mutex
	mutexes map[string]*sync.Mutex
}

func newJournal(dir string) (*journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &journal{dir: dir, mutexes: make(map[string]*sync.Mutex)}, nil
}

// path returns the file for the UTC day of t.
func (j *journal) path(t time.Time) string {
	return filepath.Join(j.dir, t.UTC().Format("2006-01-02.jsonl"))
}

// fileMutex returns the mutex guarding filename.
// The map grows by one entry per day.
func (j *journal) fileMutex(filename string) *sync.Mutex {
	j.mu.Lock()
	defer j.mu.Unlock()

	m, ok := j.mutexes[filename]
	if !ok {
		m = &sync.Mutex{}
		j.mutexes[filename] = m
	}
	return m
}

func (j *journal) append(at time.Time, entry journalEntry) error {
	filename := j.path(at)
	m := j.fileMutex(filename)
	m.Lock()
	defer m.Unlock()

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(entry)
}
