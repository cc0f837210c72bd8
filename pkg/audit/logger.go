package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/internal/utils"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/transcript"
)

const DefaultHistorySize = 1000

// Logger appends audit entries to date-partitioned JSONL files and keeps
// a bounded in-memory history for fast queries. Log files are never
// rewritten, only appended.
type Logger struct {
	mu      sync.Mutex
	dir     string
	history *ring

	now func() time.Time
}

// NewLogger creates a logger writing under dir, keeping historySize
// entries in memory (DefaultHistorySize when <= 0).
func NewLogger(dir string, historySize int) (*Logger, error) {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating audit log dir: %w", err)
	}
	return &Logger{
		dir:     dir,
		history: newRing(historySize),
		now:     time.Now,
	}, nil
}

// Dir returns the audit log directory.
func (l *Logger) Dir() string { return l.dir }

// Log appends the entry to the in-memory history and to today's log file
// as one JSON line. The file append and buffer update are serialized so
// concurrent pipelines in one process share the logger safely.
func (l *Logger) Log(entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling audit entry %s: %w", entry.AuditID, err)
	}

	path := l.filePath(l.now().UTC())
	lock, err := utils.NewFileLock(path)
	if err != nil {
		return err
	}
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			utils.Log.Warnf("Releasing audit log lock: %v", err)
		}
	}()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening audit log %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}

	l.history.push(entry)
	return nil
}

// History returns the in-memory entries, oldest first.
func (l *Logger) History() []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.history.items()
}

// PendingReview returns logged entries whose decision is review and which
// carry no human-review amendment yet.
func (l *Logger) PendingReview() ([]*Entry, error) {
	entries, err := l.readAll(nil, nil)
	if err != nil {
		return nil, err
	}
	var pending []*Entry
	for _, e := range entries {
		if e.Decision != nil && e.Decision.AutoDecision == transcript.DecisionReview && e.HumanReview == nil {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// filePath returns the date-partitioned log file for t.
func (l *Logger) filePath(t time.Time) string {
	return filepath.Join(l.dir, "audit-"+t.Format("2006-01-02")+".jsonl")
}

// readAll loads entries from the durable log, filtered to the optional
// date range. Summaries always read the durable log rather than the
// capped in-memory window so evicted entries still count.
func (l *Logger) readAll(start, end *time.Time) ([]*Entry, error) {
	pattern := filepath.Join(l.dir, "audit-*.jsonl")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	var entries []*Entry
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading audit log %s: %w", file, err)
		}
		for _, line := range splitLines(raw) {
			if len(line) == 0 {
				continue
			}
			var e Entry
			if err := json.Unmarshal(line, &e); err != nil {
				utils.Log.Warnf("Skipping corrupt audit line in %s: %v", file, err)
				continue
			}
			if start != nil && e.CreatedAt.Before(*start) {
				continue
			}
			if end != nil && e.CreatedAt.After(*end) {
				continue
			}
			entries = append(entries, &e)
		}
	}
	return entries, nil
}

func splitLines(raw []byte) [][]byte {
	var lines [][]byte
	begin := 0
	for i, b := range raw {
		if b == '\n' {
			lines = append(lines, raw[begin:i])
			begin = i + 1
		}
	}
	if begin < len(raw) {
		lines = append(lines, raw[begin:])
	}
	return lines
}

// ring is a bounded circular buffer with O(1) eviction of the oldest entry.
type ring struct {
	buf   []*Entry
	head  int
	count int
}

func newRing(size int) *ring {
	return &ring{buf: make([]*Entry, size)}
}

func (r *ring) push(e *Entry) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = e
		r.count++
		return
	}
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring) items() []*Entry {
	out := make([]*Entry, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}
