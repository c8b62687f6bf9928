package services

import (
	"sort"
	"sync"

	"github.com/bytebloomg/PrivateCourt/court"
)

// TrialStore persists trial records and message entries so the court service
// can rebuild its ledger on restart.
type TrialStore interface {
	// SaveTrial inserts or updates one trial record.
	SaveTrial(t *court.Trial) error

	// SaveMessage persists the entry at the given index of a trial's ledger.
	SaveMessage(trialID, index uint64, entry *court.MessageEntry) error

	// LoadAll returns every persisted trial and, per trial id, its message
	// entries in index order.
	LoadAll() ([]court.Trial, map[uint64][]court.MessageEntry, error)

	// Close releases the store's resources.
	Close() error
}

// RestoreCourt loads a store's contents into an empty court.
func RestoreCourt(c *court.Court, store TrialStore) error {
	trials, messages, err := store.LoadAll()
	if err != nil {
		return err
	}
	return c.Restore(trials, messages)
}

// InMemoryStore implements TrialStore for tests and single-run deployments.
type InMemoryStore struct {
	mu       sync.Mutex
	trials   map[uint64]court.Trial
	messages map[uint64][]court.MessageEntry
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		trials:   make(map[uint64]court.Trial),
		messages: make(map[uint64][]court.MessageEntry),
	}
}

// SaveTrial stores a trial record in memory.
func (s *InMemoryStore) SaveTrial(t *court.Trial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trials[t.ID] = *t
	return nil
}

// SaveMessage stores a message entry in memory. Indices arrive densely, so
// appending keeps ledger order.
func (s *InMemoryStore) SaveMessage(trialID, index uint64, entry *court.MessageEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index == uint64(len(s.messages[trialID])) {
		s.messages[trialID] = append(s.messages[trialID], *entry)
	}
	return nil
}

// LoadAll returns the stored trials in id order with their messages.
func (s *InMemoryStore) LoadAll() ([]court.Trial, map[uint64][]court.MessageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trials := make([]court.Trial, 0, len(s.trials))
	for _, t := range s.trials {
		trials = append(trials, t)
	}
	sort.Slice(trials, func(i, j int) bool { return trials[i].ID < trials[j].ID })

	messages := make(map[uint64][]court.MessageEntry, len(s.messages))
	for id, entries := range s.messages {
		messages[id] = append([]court.MessageEntry(nil), entries...)
	}
	return trials, messages, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
