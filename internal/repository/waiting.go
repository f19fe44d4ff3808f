package repository

import (
	"time"

	"github.com/wemet/relay-server-go/internal/model"
)

// WaitingPoolRepository keeps connections awaiting a partner in arrival
// order. Arrival order only matters for eviction; matching callers choose
// among FindCompatible results themselves.
type WaitingPoolRepository interface {
	Enqueue(entry model.WaitingEntry)
	FindCompatible(requesterID string, filters model.Filters) []model.WaitingEntry
	RemoveByID(id string) bool
	EvictStale(now time.Time, timeout time.Duration) []model.WaitingEntry
	Contains(id string) bool
	Len() int
}

type waitingPoolRepo struct {
	entries []model.WaitingEntry
}

func NewWaitingPoolRepository() WaitingPoolRepository {
	return &waitingPoolRepo{}
}

// Enqueue appends entry. An existing entry for the same connection is
// dropped first so a repeated request replaces the earlier one.
func (r *waitingPoolRepo) Enqueue(entry model.WaitingEntry) {
	r.RemoveByID(entry.ConnectionID)
	r.entries = append(r.entries, entry)
}

func (r *waitingPoolRepo) FindCompatible(requesterID string, filters model.Filters) []model.WaitingEntry {
	var matches []model.WaitingEntry
	for _, e := range r.entries {
		if e.ConnectionID == requesterID {
			continue
		}
		if filters.Compatible(e.Filters) {
			matches = append(matches, e)
		}
	}
	return matches
}

func (r *waitingPoolRepo) RemoveByID(id string) bool {
	for i, e := range r.entries {
		if e.ConnectionID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (r *waitingPoolRepo) EvictStale(now time.Time, timeout time.Duration) []model.WaitingEntry {
	var evicted []model.WaitingEntry
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.Age(now) > timeout {
			evicted = append(evicted, e)
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return evicted
}

func (r *waitingPoolRepo) Contains(id string) bool {
	for _, e := range r.entries {
		if e.ConnectionID == id {
			return true
		}
	}
	return false
}

func (r *waitingPoolRepo) Len() int {
	return len(r.entries)
}
