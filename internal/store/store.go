// Package store holds the shared in-memory source of truth for incidents,
// their audit history, and their chat transcripts. All consumers (list views,
// detail panels, sync controller, simulated backend) mutate through the same
// Store instance; nothing holds a private divergent copy.
package store

import (
	"errors"
	"sync"

	"github.com/alerta-utec/campuswatch/internal/domain"
)

// ErrNotFound is returned by read accessors for an unknown incident id.
var ErrNotFound = errors.New("incident not found")

// Store is a mutex-guarded in-memory incident collection.
// It carries no I/O policy of its own.
type Store struct {
	mu        sync.RWMutex
	incidents map[string]domain.Incident
	history   map[string][]domain.HistoryEntry
	messages  map[string][]domain.ChatMessage
}

// New creates an empty store.
func New() *Store {
	return &Store{
		incidents: make(map[string]domain.Incident),
		history:   make(map[string][]domain.HistoryEntry),
		messages:  make(map[string][]domain.ChatMessage),
	}
}

// Upsert inserts the incident if its id is unseen, otherwise replaces it.
// The stored UpdatedAt never decreases: if the existing version is newer,
// its UpdatedAt is kept on the replacement.
func (s *Store) Upsert(inc domain.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.incidents[inc.ID]; ok && existing.UpdatedAt > inc.UpdatedAt {
		inc.UpdatedAt = existing.UpdatedAt
	}
	s.incidents[inc.ID] = inc
}

// Replace writes the incident verbatim, overriding the UpdatedAt clamp.
// Used by event-driven merges that have already applied their own ordering
// rule.
func (s *Store) Replace(inc domain.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents[inc.ID] = inc
}

// Get returns a copy of the incident with the given id.
func (s *Store) Get(id string) (domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inc, ok := s.incidents[id]
	if !ok {
		return domain.Incident{}, ErrNotFound
	}
	return inc, nil
}

// List returns a snapshot of all incidents matching the predicate.
// A nil predicate matches everything. Callers never observe store mutation
// mid-iteration.
func (s *Store) List(pred func(domain.Incident) bool) []domain.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		if pred == nil || pred(inc) {
			out = append(out, inc)
		}
	}
	return out
}

// AppendHistory appends an entry to the incident's audit trail.
// The trail is created lazily on first use, so appending for an id the
// store has not seen yet is not an error.
func (s *Store) AppendHistory(id string, entry domain.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[id] = append(s.history[id], entry)
}

// History returns a copy of the incident's audit trail in append order.
// Returns ErrNotFound if neither the incident nor its trail is known.
func (s *Store) History(id string) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.history[id]
	if !ok {
		if _, known := s.incidents[id]; !known {
			return nil, ErrNotFound
		}
		return []domain.HistoryEntry{}, nil
	}

	out := make([]domain.HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// AppendMessage appends a message to the incident's chat transcript,
// creating the transcript lazily on first use.
func (s *Store) AppendMessage(id string, msg domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[id] = append(s.messages[id], msg)
}

// Messages returns a copy of the incident's chat transcript in append order.
// Returns ErrNotFound if neither the incident nor its transcript is known.
func (s *Store) Messages(id string) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs, ok := s.messages[id]
	if !ok {
		if _, known := s.incidents[id]; !known {
			return nil, ErrNotFound
		}
		return []domain.ChatMessage{}, nil
	}

	out := make([]domain.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Len returns the number of stored incidents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.incidents)
}
