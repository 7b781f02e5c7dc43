// Package store provides the normalized, owner-scoped in-memory collection
// backing each entity kind. It is the single shared mutable resource of the
// engine: the mutation coordinator writes it, derivations read it, and the
// UI layer never touches it directly.
package store

import "sync"

// Record is the contract an entity must satisfy to live in a Store.
type Record[R any] interface {
	GetID() string
	GetOwnerID() string
	Clone() R
}

// Store holds records for exactly one owner, keyed by id, preserving
// insertion order. Upsert is idempotent by id. The store never calls the
// network; its lifetime is the authenticated session.
type Store[R Record[R]] struct {
	mu      sync.RWMutex
	ownerID string
	byID    map[string]R
	order   []string
}

// New creates an empty store scoped to the given owner.
func New[R Record[R]](ownerID string) *Store[R] {
	return &Store[R]{
		ownerID: ownerID,
		byID:    make(map[string]R),
	}
}

// OwnerID returns the owner this store is scoped to.
func (s *Store[R]) OwnerID() string {
	return s.ownerID
}

// Upsert inserts or replaces a single record. Records owned by anyone other
// than the store's owner are silently dropped; cross-user data never enters.
func (s *Store[R]) Upsert(record R) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(record)
}

// UpsertMany inserts or replaces records, keeping the position of ids that
// already exist and appending new ones in input order.
func (s *Store[R]) UpsertMany(records []R) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.upsertLocked(r)
	}
}

func (s *Store[R]) upsertLocked(record R) {
	if record.GetOwnerID() != s.ownerID {
		return
	}
	id := record.GetID()
	if _, exists := s.byID[id]; !exists {
		s.order = append(s.order, id)
	}
	s.byID[id] = record.Clone()
}

// Replace swaps the record stored under oldID for the given record at the
// same list position. Used when a server-confirmed record supersedes a
// provisional one. Returns false if oldID is absent.
func (s *Store[R]) Replace(oldID string, record R) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.GetOwnerID() != s.ownerID {
		return false
	}
	if _, exists := s.byID[oldID]; !exists {
		return false
	}

	newID := record.GetID()
	delete(s.byID, oldID)
	s.byID[newID] = record.Clone()
	if newID != oldID {
		// A change-feed echo can land the confirmed id before the
		// confirmation does; drop that slot so the id appears once, at
		// the provisional record's position.
		for i, id := range s.order {
			if id == newID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	for i, id := range s.order {
		if id == oldID {
			s.order[i] = newID
			break
		}
	}
	return true
}

// Take removes a record and reports the list position it occupied, so a
// rollback can put it back where it was.
func (s *Store[R]) Take(id string) (R, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.byID[id]
	if !exists {
		var zero R
		return zero, -1, false
	}
	delete(s.byID, id)
	index := -1
	for i, existing := range s.order {
		if existing == id {
			index = i
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return record.Clone(), index, true
}

// RestoreAt re-inserts a record at the given list position, clamped to the
// current bounds. Undoes a Take; an id already present is overwritten in
// place instead.
func (s *Store[R]) RestoreAt(index int, record R) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.GetOwnerID() != s.ownerID {
		return
	}
	id := record.GetID()
	if _, exists := s.byID[id]; exists {
		s.byID[id] = record.Clone()
		return
	}
	if index < 0 {
		index = 0
	}
	if index > len(s.order) {
		index = len(s.order)
	}
	s.order = append(s.order, "")
	copy(s.order[index+1:], s.order[index:])
	s.order[index] = id
	s.byID[id] = record.Clone()
}

// Remove deletes a record by id. Returns whether it existed.
func (s *Store[R]) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; !exists {
		return false
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns a copy of the record with the given id.
func (s *Store[R]) Get(id string) (R, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byID[id]
	if !ok {
		var zero R
		return zero, false
	}
	return record.Clone(), true
}

// All returns copies of every record in insertion order.
func (s *Store[R]) All() []R {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]R, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out
}

// Len returns the number of records held.
func (s *Store[R]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Reset clears the store. Called on sign-out; the store is rebuilt on the
// next sign-in or refresh.
func (s *Store[R]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]R)
	s.order = nil
}
