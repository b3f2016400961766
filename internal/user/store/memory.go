package store

import (
	"context"
	"sort"
	"sync"

	"eventdesk/pkg/platform/sentinel"
)

// InMemory keeps directory entries in a map.
type InMemory struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*User
}

func NewInMemory() *InMemory {
	return &InMemory{nextID: 1, users: make(map[int64]*User)}
}

func (s *InMemory) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextID
	s.nextID++
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// ListApprovedIDs returns every approved user id, ascending.
func (s *InMemory) ListApprovedIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for _, u := range s.users {
		if u.Approved {
			ids = append(ids, u.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// FindAdminID returns the lowest-id approved admin.
func (s *InMemory) FindAdminID(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best int64
	for _, u := range s.users {
		if u.Approved && u.Role == RoleAdmin && (best == 0 || u.ID < best) {
			best = u.ID
		}
	}
	if best == 0 {
		return 0, sentinel.ErrNotFound
	}
	return best, nil
}
