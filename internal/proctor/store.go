package proctor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vigilexam/vigil-backend/internal/model"
)

// MaxPendingEvents caps the pending-event store. When full, the oldest
// entries are dropped first; losing stale telemetry beats unbounded
// growth on a broken connection.
const MaxPendingEvents = 500

// Store holds events that have been produced but not yet confirmed by
// the server. Entries leave the store only via Remove after a confirmed
// delivery, so a crash between send and confirm redelivers.
type Store interface {
	Append(e model.IncomingEvent) error
	Snapshot() ([]model.IncomingEvent, error)
	Remove(ids []string) error
	Len() int
}

// MemStore is an in-memory Store for tests and throwaway sessions.
type MemStore struct {
	mu     sync.Mutex
	events []model.IncomingEvent
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Append(e model.IncomingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = appendCapped(s.events, e)
	return nil
}

func (s *MemStore) Snapshot() ([]model.IncomingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.IncomingEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}

func (s *MemStore) Remove(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = removeByID(s.events, ids)
	return nil
}

func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// FileStore persists pending events to one JSON file per attempt so the
// queue survives a process restart.
type FileStore struct {
	mu   sync.Mutex
	path string

	loaded bool
	events []model.IncomingEvent
}

// NewFileStore creates a FileStore rooted at dir for the given attempt.
// The file is created lazily on the first append.
func NewFileStore(dir, attemptID string) *FileStore {
	return &FileStore{path: filepath.Join(dir, "pending-"+attemptID+".json")}
}

func (s *FileStore) Append(e model.IncomingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	s.events = appendCapped(s.events, e)
	return s.persist()
}

func (s *FileStore) Snapshot() ([]model.IncomingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	out := make([]model.IncomingEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}

func (s *FileStore) Remove(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	s.events = removeByID(s.events, ids)
	return s.persist()
}

func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return 0
	}
	return len(s.events)
}

func (s *FileStore) load() error {
	if s.loaded {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("read pending store: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.events); err != nil {
			// A corrupt store cannot be replayed; start over.
			s.events = nil
		}
	}
	s.loaded = true
	return nil
}

func (s *FileStore) persist() error {
	data, err := json.Marshal(s.events)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func appendCapped(events []model.IncomingEvent, e model.IncomingEvent) []model.IncomingEvent {
	events = append(events, e)
	if len(events) > MaxPendingEvents {
		events = events[len(events)-MaxPendingEvents:]
	}
	return events
}

func removeByID(events []model.IncomingEvent, ids []string) []model.IncomingEvent {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := events[:0]
	for _, e := range events {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	return kept
}
