package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"eventdesk/internal/proposal/models"
	"eventdesk/pkg/platform/sentinel"
)

// InMemory keeps proposals in a map. Used by unit tests and local runs.
type InMemory struct {
	mu        sync.RWMutex
	nextID    int64
	proposals map[uuid.UUID]*models.Proposal
}

func NewInMemory() *InMemory {
	return &InMemory{nextID: 1, proposals: make(map[uuid.UUID]*models.Proposal)}
}

func (s *InMemory) Create(_ context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.proposals[p.UUID]; exists {
		return sentinel.ErrConflict
	}
	p.ID = s.nextID
	s.nextID++
	cp := *p
	s.proposals[p.UUID] = &cp
	return nil
}

func (s *InMemory) FindByUUID(_ context.Context, id uuid.UUID) (*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proposals[id]
	if !ok || p.Deleted {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) ResolveID(ctx context.Context, id uuid.UUID) (int64, error) {
	p, err := s.FindByUUID(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

// UpdateStatus applies the conditional status write. The compare-and-swap
// is on the expected prior status so two racing reviewers cannot both win.
func (s *InMemory) UpdateStatus(_ context.Context, upd StatusUpdate) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[upd.UUID]
	if !ok || p.Deleted {
		return nil, sentinel.ErrNotFound
	}
	if p.Status != upd.From {
		return nil, sentinel.ErrConflict
	}

	p.Status = upd.To
	p.UpdatedAt = upd.UpdatedAt
	if upd.SubmittedAt != nil {
		p.SubmittedAt = upd.SubmittedAt
	}
	if upd.ReviewedAt != nil {
		p.ReviewedAt = upd.ReviewedAt
	}
	if upd.ApprovedAt != nil {
		p.ApprovedAt = upd.ApprovedAt
	}
	if upd.ReviewerID != nil {
		p.ReviewerID = upd.ReviewerID
	}
	if upd.AdminComments != nil {
		p.AdminComments = *upd.AdminComments
	}

	cp := *p
	return &cp, nil
}

// SoftDelete flags the proposal; rows are never removed.
func (s *InMemory) SoftDelete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok || p.Deleted {
		return sentinel.ErrNotFound
	}
	p.Deleted = true
	return nil
}
