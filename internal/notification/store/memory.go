package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"eventdesk/internal/notification/models"
	"eventdesk/pkg/platform/sentinel"
)

// InMemory keeps notifications in a map. Used by unit tests and local runs.
type InMemory struct {
	mu            sync.RWMutex
	nextID        int64
	notifications map[int64]*models.Notification
	preferences   map[prefKey]*models.Preference
}

type prefKey struct {
	userID int64
	typ    string
}

func NewInMemory() *InMemory {
	return &InMemory{
		nextID:        1,
		notifications: make(map[int64]*models.Notification),
		preferences:   make(map[prefKey]*models.Preference),
	}
}

func (s *InMemory) Insert(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.nextID
	s.nextID++
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *InMemory) MarkDelivered(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if n.Status != models.StatusPending {
		return sentinel.ErrInvalidState
	}
	n.Status = models.StatusDelivered
	n.DeliveredAt = &at
	return nil
}

// visible reports whether the row passes the expiry exclusion applied to
// all read paths: expired rows and rows past their ExpiresAt never show.
func visible(n *models.Notification, now time.Time) bool {
	if n.Status == models.StatusExpired {
		return false
	}
	return !n.Expired(now)
}

func (s *InMemory) List(_ context.Context, recipientID int64, f Filter, now time.Time) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Notification
	for _, n := range s.notifications {
		if n.RecipientID != recipientID || !visible(n, now) {
			continue
		}
		if f.UnreadOnly && (n.Status == models.StatusRead || n.Status == models.StatusArchived) {
			continue
		}
		if f.Priority != "" && string(n.Priority) != f.Priority {
			continue
		}
		if f.Status != "" && string(n.Status) != f.Status {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		out = append(out, *n)
	}

	// Priority desc (urgent first), then newest first.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	offset := f.Offset()
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *InMemory) CountUnread(_ context.Context, recipientID int64, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.RecipientID != recipientID || !visible(n, now) {
			continue
		}
		if n.Status != models.StatusRead {
			count++
		}
	}
	return count, nil
}

// MarkRead flips the given notifications (or all unread when ids is empty)
// to read, scoped to the recipient. Returns how many rows changed.
func (s *InMemory) MarkRead(_ context.Context, recipientID int64, ids []int64, readAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := make(map[int64]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	var count int64
	for _, n := range s.notifications {
		if n.RecipientID != recipientID || !visible(n, readAt) {
			continue
		}
		if len(ids) > 0 && !idSet[n.ID] {
			continue
		}
		if n.Status == models.StatusRead || n.Status == models.StatusArchived {
			continue
		}
		at := readAt
		n.Status = models.StatusRead
		n.ReadAt = &at
		count++
	}
	return count, nil
}

func (s *InMemory) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, n := range s.notifications {
		if n.Status != models.StatusExpired && n.Expired(now) {
			n.Status = models.StatusExpired
			count++
		}
	}
	return count, nil
}

func (s *InMemory) PurgeExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, n := range s.notifications {
		if n.Status == models.StatusExpired && n.ExpiresAt != nil && n.ExpiresAt.Before(cutoff) {
			delete(s.notifications, id)
			count++
		}
	}
	return count, nil
}

func (s *InMemory) UpsertPreference(_ context.Context, p *models.Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.preferences[prefKey{p.UserID, p.Type}] = &cp
	return nil
}

func (s *InMemory) FindPreference(_ context.Context, userID int64, typ string) (*models.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.preferences[prefKey{userID, typ}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}
