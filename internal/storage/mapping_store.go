// Package storage holds the process-lifetime mapping table that links source
// events to their mirrored destination events.
package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// MappingStore defines data access for event mappings.
type MappingStore interface {
	// Get returns the mapping for a source event id.
	Get(sourceID string) (models.Mapping, bool)

	// Put inserts or replaces the mapping for m.SourceID.
	Put(m models.Mapping)

	// Delete removes a mapping. Deleting an unknown id is a no-op.
	Delete(sourceID string)

	// All returns every mapping ordered by source id.
	All() []models.Mapping

	// Len returns the number of mappings.
	Len() int

	// Reset removes every mapping and returns how many were dropped.
	Reset() int
}

// MemoryStore is an in-memory MappingStore. Its contents are lost when the
// process exits, so a restart re-creates every active event downstream.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]models.Mapping
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory mapping store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mappings: make(map[string]models.Mapping),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a copy of the mapping for sourceID.
func (s *MemoryStore) Get(sourceID string) (models.Mapping, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[sourceID]
	if !ok {
		return models.Mapping{}, false
	}
	return m.Clone(), true
}

// Put stores a copy of m, stamping CreatedAt on first insert and UpdatedAt always.
func (s *MemoryStore) Put(m models.Mapping) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stored := m.Clone()
	if existing, ok := s.mappings[m.SourceID]; ok && stored.CreatedAt.IsZero() {
		stored.CreatedAt = existing.CreatedAt
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.mappings[m.SourceID] = stored
}

// Delete removes the mapping for sourceID.
func (s *MemoryStore) Delete(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mappings, sourceID)
}

// All returns copies of all mappings sorted by source id.
func (s *MemoryStore) All() []models.Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Mapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}

// Len returns the number of stored mappings.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mappings)
}

// Reset clears the store.
func (s *MemoryStore) Reset() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.mappings)
	s.mappings = make(map[string]models.Mapping)
	return n
}
