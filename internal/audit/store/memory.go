// Package store persists audit entries behind one storage-agnostic
// interface so the recorder does not care which backend it writes to.
package store

import (
	"context"
	"sort"
	"sync"

	"eventdesk/internal/audit"
)

// InMemory keeps audit entries per proposal. Used by unit tests and local runs.
type InMemory struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[int64][]audit.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{nextID: 1, entries: make(map[int64][]audit.Entry)}
}

func (s *InMemory) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextID
	s.nextID++
	s.entries[entry.ProposalID] = append(s.entries[entry.ProposalID], *entry)
	return nil
}

func (s *InMemory) ListByProposal(_ context.Context, proposalID int64, limit, offset int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := append([]audit.Entry{}, s.entries[proposalID]...)
	// Newest first; insertion order breaks timestamp ties.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *InMemory) StatsByProposal(_ context.Context, proposalID int64) ([]audit.ActionStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byAction := make(map[audit.ActionType]*audit.ActionStat)
	for _, e := range s.entries[proposalID] {
		stat, ok := byAction[e.Action]
		if !ok {
			stat = &audit.ActionStat{Action: e.Action, First: e.CreatedAt, Last: e.CreatedAt}
			byAction[e.Action] = stat
		}
		stat.Count++
		if e.CreatedAt.Before(stat.First) {
			stat.First = e.CreatedAt
		}
		if e.CreatedAt.After(stat.Last) {
			stat.Last = e.CreatedAt
		}
	}

	stats := make([]audit.ActionStat, 0, len(byAction))
	for _, stat := range byAction {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Action < stats[j].Action })
	return stats, nil
}
