//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"eventdesk/internal/audit"
	"eventdesk/internal/audit/store"
	"eventdesk/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite

	ctx          context.Context
	pg           *containers.PostgresContainer
	store        *store.PostgresStore
	proposalUUID uuid.UUID
	now          time.Time
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.pg.DB)
}

func (s *PostgresSuite) SetupTest() {
	s.proposalUUID = uuid.New()
	s.now = time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.pg.TruncateTables(s.ctx, "audit_logs"))
}

func (s *PostgresSuite) append(action audit.ActionType, at time.Time) *audit.Entry {
	e := &audit.Entry{
		ProposalID:   1,
		ProposalUUID: s.proposalUUID,
		Action:       action,
		ActorID:      2,
		OldValue:     "pending",
		NewValue:     "approved",
		Note:         "n",
		Meta:         map[string]any{"client": "web"},
		CreatedAt:    at,
	}
	s.Require().NoError(s.store.Append(s.ctx, e))
	s.Require().NotZero(e.ID)
	return e
}

func (s *PostgresSuite) TestAppendAndList() {
	s.append(audit.ActionCreate, s.now.Add(-2*time.Minute))
	s.append(audit.ActionUpdate, s.now.Add(-time.Minute))
	s.append(audit.ActionApprove, s.now)

	entries, err := s.store.ListByProposal(s.ctx, 1, 0, 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(audit.ActionApprove, entries[0].Action)
	s.Equal(audit.ActionCreate, entries[2].Action)
	s.Equal("web", entries[0].Meta["client"])
	s.Equal("pending", entries[0].OldValue)
	s.Equal("approved", entries[0].NewValue)

	page, err := s.store.ListByProposal(s.ctx, 1, 1, 1)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal(audit.ActionUpdate, page[0].Action)
}

func (s *PostgresSuite) TestListScopedToProposal() {
	s.append(audit.ActionCreate, s.now)

	entries, err := s.store.ListByProposal(s.ctx, 999, 0, 0)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *PostgresSuite) TestStats() {
	s.append(audit.ActionUpdate, s.now.Add(-2*time.Minute))
	s.append(audit.ActionUpdate, s.now.Add(-time.Minute))
	s.append(audit.ActionApprove, s.now)

	stats, err := s.store.StatsByProposal(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(stats, 2)

	byAction := map[audit.ActionType]audit.ActionStat{}
	for _, st := range stats {
		byAction[st.Action] = st
	}
	s.Equal(2, byAction[audit.ActionUpdate].Count)
	s.True(byAction[audit.ActionUpdate].First.Before(byAction[audit.ActionUpdate].Last))
	s.Equal(1, byAction[audit.ActionApprove].Count)
}
