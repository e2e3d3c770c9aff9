// Package history keeps a bounded, most-recent-first record of past analyses
// and persists it to a single named slot.
package history

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/proofread/internal/correction"
)

// Capacity is the maximum number of entries kept.
const Capacity = 10

// Entry is one past analysis. Entries are never mutated after creation.
type Entry struct {
	ID         string            `json:"id" yaml:"id"`
	Timestamp  int64             `json:"timestamp" yaml:"timestamp"` // ms since epoch
	SourceText string            `json:"source_text" yaml:"source_text"`
	Result     correction.Result `json:"result" yaml:"result"`
}

// Time returns the entry timestamp as a time.Time.
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Snapshot is the full entry list at one generation. Backends must never
// let an older generation overwrite a newer one.
type Snapshot struct {
	Generation uint64
	Entries    []Entry
}

// Backend persists snapshots.
type Backend interface {
	Load() ([]Entry, error)
	Save(snap Snapshot) error
}

// Store is the in-memory history. Mutations return the snapshot to persist
// so callers decide whether saving happens inline or in the background.
type Store struct {
	mu      sync.Mutex
	entries []Entry
	gen     uint64
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides the identifier generator.
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore returns an empty store backed by backend. A nil backend keeps
// history in memory only.
func NewStore(backend Backend, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backend: backend,
		logger:  logger.With("component", "history"),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load reads persisted history. Missing or corrupt state yields an empty
// store; the failure is logged, never returned.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	if s.backend == nil {
		return
	}
	entries, err := s.backend.Load()
	if err != nil {
		s.logger.Warn("discarding unreadable history", "error", err)
		return
	}
	if len(entries) > Capacity {
		entries = entries[:Capacity]
	}
	for _, e := range entries {
		e.Result = e.Result.WithCorrections(e.Result.Corrections)
		s.entries = append(s.entries, e)
	}
	s.logger.Debug("history loaded", "entries", len(s.entries))
}

// Record prepends a new entry for a successful analysis and evicts anything
// past Capacity.
func (s *Store) Record(sourceText string, result correction.Result) (Entry, Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{
		ID:         s.newID(),
		Timestamp:  s.now().UnixMilli(),
		SourceText: sourceText,
		Result:     result,
	}
	next := make([]Entry, 0, Capacity)
	next = append(next, e)
	next = append(next, s.entries...)
	if len(next) > Capacity {
		next = next[:Capacity]
	}
	s.entries = next
	return e, s.snapshotLocked()
}

// Clear removes every entry.
func (s *Store) Clear() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	s.gen++
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return Snapshot{Generation: s.gen, Entries: out}
}

// Save persists snap. It is safe to call from another goroutine.
func (s *Store) Save(snap Snapshot) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Save(snap); err != nil {
		s.logger.Error("failed to persist history", "generation", snap.Generation, "error", err)
		return err
	}
	return nil
}

// Entries returns a copy of the history, most recent first.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Find returns the most recent entry whose ID starts with prefix.
func (s *Store) Find(prefix string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prefix == "" {
		return Entry{}, false
	}
	for _, e := range s.entries {
		if strings.HasPrefix(e.ID, prefix) {
			return e, true
		}
	}
	return Entry{}, false
}

// Select returns the text and result an entry should re-hydrate.
func Select(e Entry) (string, correction.Result) {
	return e.SourceText, e.Result
}
