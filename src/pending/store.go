package pending

import (
	"sync"

	logger "github.com/sirupsen/logrus"

	"copyexecutor/src/model"
)

// Store holds the trades awaiting a user decision. Insertion order is
// the display order; ids are unique and the first write wins. All
// mutation arrives from the stream dispatcher or the orchestrator, but
// the HTTP layer reads concurrently, so access is guarded.
type Store struct {
	mu    sync.RWMutex
	order []string
	items map[string]model.PendingTrade
}

func NewStore() *Store {
	return &Store{items: make(map[string]model.PendingTrade)}
}

// Snapshot replaces the whole collection with the server's authoritative
// set, keeping only trades still reported as pending.
func (s *Store) Snapshot(trades []model.PendingTrade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.items = make(map[string]model.PendingTrade, len(trades))
	for _, t := range trades {
		if t.Status != model.StatusPending {
			continue
		}
		if _, ok := s.items[t.ID]; ok {
			continue
		}
		s.items[t.ID] = t
		s.order = append(s.order, t.ID)
	}

	logger.WithField("count", len(s.order)).Debug("Pending trade snapshot applied")
}

// Upsert appends a trade if its id is not already present. Existing
// entries are never overwritten. Returns false for duplicates.
func (s *Store) Upsert(t model.PendingTrade) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[t.ID]; ok {
		logger.WithField("tradeId", t.ID).Debug("Duplicate copy trade ignored")
		return false
	}
	s.items[t.ID] = t
	s.order = append(s.order, t.ID)
	return true
}

// RemoveByID removes a trade. Removing an absent id is a no-op; the
// skip path and server reconciliation both rely on that.
func (s *Store) RemoveByID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) Get(id string) (model.PendingTrade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.items[id]
	return t, ok
}

// List returns the trades in insertion order.
func (s *Store) List() []model.PendingTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.PendingTrade, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
