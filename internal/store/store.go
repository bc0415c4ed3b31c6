// Package store holds the in-memory obligation collection. All derived views
// are pure projections of the latest applied mutation; values are copied in
// and out so callers never share memory with the store.
package store

import (
	"sort"
	"sync"

	"scadenze/internal/core"
	"scadenze/internal/schedule"
)

type Store struct {
	mu            sync.RWMutex
	obligations   map[int64]core.Obligation
	contributions map[int64][]core.Contribution
}

func New() *Store {
	return &Store{
		obligations:   make(map[int64]core.Obligation),
		contributions: make(map[int64][]core.Contribution),
	}
}

// Load replaces the whole collection, used when hydrating from persistence
// at startup.
func (s *Store) Load(obligations []core.Obligation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obligations = make(map[int64]core.Obligation, len(obligations))
	for _, o := range obligations {
		s.obligations[o.ID] = o
	}
}

// NextID returns max existing id + 1.
func (s *Store) NextID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for id := range s.obligations {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (s *Store) All() []core.Obligation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(core.Obligation) bool { return true })
}

func (s *Store) ByID(id int64) (core.Obligation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.obligations[id]
	return o, ok
}

func (s *Store) Active() []core.Obligation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(o core.Obligation) bool { return o.IsActive })
}

func (s *Store) Inactive() []core.Obligation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(o core.Obligation) bool { return !o.IsActive })
}

func (s *Store) OfKind(k core.Kind) []core.Obligation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(o core.Obligation) bool { return o.Kind == k })
}

// DueOnOrBefore returns active obligations whose next occurrence is on or
// before the given date. Inactive obligations are never due.
func (s *Store) DueOnOrBefore(date core.Date) []core.Obligation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(o core.Obligation) bool {
		return o.IsActive && !o.NextOccurrence.After(date.Time)
	})
}

// UpcomingWindow returns active obligations for the next-30-days dashboard,
// including obligations up to 7 days overdue.
func (s *Store) UpcomingWindow(today core.Date) []core.Obligation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(o core.Obligation) bool {
		return o.IsActive && schedule.InUpcomingWindow(o.NextOccurrence, today)
	})
}

// collect must be called with the lock held.
func (s *Store) collect(keep func(core.Obligation) bool) []core.Obligation {
	out := make([]core.Obligation, 0, len(s.obligations))
	for _, o := range s.obligations {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Insert(o core.Obligation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obligations[o.ID] = o
}

// Replace swaps the stored record for an updated one. It reports whether the
// id existed.
func (s *Store) Replace(o core.Obligation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.obligations[o.ID]; !ok {
		return false
	}
	s.obligations[o.ID] = o
	return true
}

func (s *Store) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.obligations[id]; !ok {
		return false
	}
	delete(s.obligations, id)
	return true
}

func (s *Store) SetActive(id int64, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.obligations[id]
	if !ok {
		return false
	}
	o.IsActive = active
	s.obligations[id] = o
	return true
}

// Contributions returns the locally tracked posting records for an obligation.
func (s *Store) Contributions(id int64) []core.Contribution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Contribution(nil), s.contributions[id]...)
}

func (s *Store) AddContribution(c core.Contribution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contributions[c.ObligationID] = append(s.contributions[c.ObligationID], c)
}

// RemoveContribution drops a single contribution by posting id, used when a
// payment is rolled back.
func (s *Store) RemoveContribution(obligationID int64, postingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.contributions[obligationID]
	for i, c := range recs {
		if c.PostingID == postingID {
			s.contributions[obligationID] = append(recs[:i], recs[i+1:]...)
			return
		}
	}
}

// RemoveContributions drops all contributions for an obligation and returns
// them, used by delete to cascade while keeping an undo snapshot.
func (s *Store) RemoveContributions(id int64) []core.Contribution {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.contributions[id]
	delete(s.contributions, id)
	return recs
}

// RestoreContributions puts back a cascade-deleted contribution set.
func (s *Store) RestoreContributions(id int64, recs []core.Contribution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(recs) > 0 {
		s.contributions[id] = append([]core.Contribution(nil), recs...)
	}
}
