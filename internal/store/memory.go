package store

import (
	"sync"

	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
)

// MemoryStore holds the current record collections. Every write replaces a
// whole collection.
type MemoryStore struct {
	mu sync.RWMutex
	// parsed keeps business records with their upload dates so a later
	// search term upload can reconcile them again.
	parsed   []models.BusinessRecord
	business []models.BusinessRecord
	terms    []models.SearchTermRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ReplaceBusiness swaps in a new business batch: parsed as uploaded and
// reconciled as served.
func (s *MemoryStore) ReplaceBusiness(parsed, reconciled []models.BusinessRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsed = clone(parsed)
	s.business = clone(reconciled)
}

// ReplaceSearchTerms swaps in a new search term batch together with the
// business records reconciled against it.
func (s *MemoryStore) ReplaceSearchTerms(terms []models.SearchTermRecord, reconciled []models.BusinessRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms = clone(terms)
	s.business = clone(reconciled)
}

// ParsedBusiness returns business records as they were uploaded.
func (s *MemoryStore) ParsedBusiness() []models.BusinessRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.parsed)
}

func (s *MemoryStore) Business() []models.BusinessRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.business)
}

func (s *MemoryStore) SearchTerms() []models.SearchTermRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.terms)
}

// Snapshot returns both collections under one read lock.
func (s *MemoryStore) Snapshot() ([]models.BusinessRecord, []models.SearchTermRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.business), clone(s.terms)
}

// Query returns records whose date falls within [from, to]. Empty bounds
// are open.
func (s *MemoryStore) Query(from, to string) ([]models.BusinessRecord, []models.SearchTermRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var bs []models.BusinessRecord
	for _, b := range s.business {
		if inRange(b.Date, from, to) {
			bs = append(bs, b)
		}
	}
	var ts []models.SearchTermRecord
	for _, t := range s.terms {
		if inRange(t.Date, from, to) {
			ts = append(ts, t)
		}
	}
	return bs, ts
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsed, s.business, s.terms = nil, nil, nil
}

// inRange compares YYYY-MM-DD strings lexically.
func inRange(date, from, to string) bool {
	if from != "" && date < from {
		return false
	}
	if to != "" && date > to {
		return false
	}
	return true
}

func clone[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
