package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"eventdesk/internal/audit"
	auditstore "eventdesk/internal/audit/store"
	"eventdesk/internal/proposal/models"
	proposalstore "eventdesk/internal/proposal/store"
	dErrors "eventdesk/pkg/domain-errors"
)

type RecorderSuite struct {
	suite.Suite

	ctx       context.Context
	entries   *auditstore.InMemory
	proposals *proposalstore.InMemory
	recorder  *audit.Recorder
	proposal  *models.Proposal
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.ctx = context.Background()
	s.entries = auditstore.NewInMemory()
	s.proposals = proposalstore.NewInMemory()
	s.recorder = audit.NewRecorder(s.entries, s.proposals)

	s.proposal = models.NewProposal(1, "Chess Tournament")
	s.Require().NoError(s.proposals.Create(s.ctx, s.proposal))
}

func (s *RecorderSuite) TestRecordMapsActions() {
	cases := []struct {
		action string
		want   audit.ActionType
	}{
		{"proposal_created", audit.ActionCreate},
		{"proposal_submitted", audit.ActionUpdate},
		{"proposal_resubmitted", audit.ActionUpdate},
		{"proposal_approved", audit.ActionApprove},
		{"proposal_rejected", audit.ActionReject},
		{"proposal_revision_requested", audit.ActionUpdate},
		{"proposal_deleted", audit.ActionDelete},
		{"proposal_viewed", audit.ActionView},
		{"audit_exported", audit.ActionExport},
		{"user_login", audit.ActionLogin},
		{"user_logout", audit.ActionLogout},
	}
	for _, tc := range cases {
		entry := s.recorder.Record(s.ctx, s.proposal.UUID, tc.action, 1, "", nil)
		s.Require().NotNil(entry, tc.action)
		s.Equal(tc.want, entry.Action, tc.action)
	}
}

func (s *RecorderSuite) TestRecordDefaultsUnmappedActionToUpdate() {
	entry := s.recorder.Record(s.ctx, s.proposal.UUID, "proposal_sneezed_on", 1, "", nil)
	s.Require().NotNil(entry)
	s.Equal(audit.ActionUpdate, entry.Action)
}

func (s *RecorderSuite) TestRecordCapturesValuesFromMeta() {
	entry := s.recorder.Record(s.ctx, s.proposal.UUID, "proposal_approved", 2, "fine by me", map[string]any{
		"old_value": "pending",
		"new_value": "approved",
		"client":    "web",
	})
	s.Require().NotNil(entry)
	s.Equal("pending", entry.OldValue)
	s.Equal("approved", entry.NewValue)
	s.Equal("fine by me", entry.Note)
	s.Equal(int64(2), entry.ActorID)
	s.Equal(s.proposal.ID, entry.ProposalID)
	s.Equal(s.proposal.UUID, entry.ProposalUUID)
}

func (s *RecorderSuite) TestRecordSwallowsStorageFailure() {
	recorder := audit.NewRecorder(failingStore{}, s.proposals)
	entry := recorder.Record(s.ctx, s.proposal.UUID, "proposal_approved", 2, "", nil)
	s.Nil(entry, "a storage failure is logged, never surfaced")
}

func (s *RecorderSuite) TestRecordSkipsUnknownProposal() {
	entry := s.recorder.Record(s.ctx, uuid.New(), "proposal_approved", 2, "", nil)
	s.Nil(entry)
}

func (s *RecorderSuite) TestRecordSurvivesPanickingStore() {
	recorder := audit.NewRecorder(panickingStore{}, s.proposals)
	s.NotPanics(func() {
		entry := recorder.Record(s.ctx, s.proposal.UUID, "proposal_approved", 2, "", nil)
		s.Nil(entry)
	})
}

func (s *RecorderSuite) TestListNewestFirst() {
	s.recorder.Record(s.ctx, s.proposal.UUID, "proposal_created", 1, "", nil)
	s.recorder.Record(s.ctx, s.proposal.UUID, "proposal_submitted", 1, "", nil)
	s.recorder.Record(s.ctx, s.proposal.UUID, "proposal_approved", 2, "", nil)

	entries, err := s.recorder.List(s.ctx, s.proposal.UUID, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(audit.ActionApprove, entries[0].Action)
	s.Equal(audit.ActionCreate, entries[2].Action)

	page, err := s.recorder.List(s.ctx, s.proposal.UUID, 1, 1)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal(audit.ActionUpdate, page[0].Action)
}

func (s *RecorderSuite) TestListUnknownProposal() {
	_, err := s.recorder.List(s.ctx, uuid.New(), 10, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RecorderSuite) TestStatsGroupByAction() {
	s.recorder.Record(s.ctx, s.proposal.UUID, "proposal_created", 1, "", nil)
	s.recorder.Record(s.ctx, s.proposal.UUID, "proposal_submitted", 1, "", nil)
	s.recorder.Record(s.ctx, s.proposal.UUID, "proposal_revision_requested", 2, "", nil)
	s.recorder.Record(s.ctx, s.proposal.UUID, "proposal_resubmitted", 1, "", nil)

	stats, err := s.recorder.Stats(s.ctx, s.proposal.UUID)
	s.Require().NoError(err)

	byAction := map[audit.ActionType]audit.ActionStat{}
	for _, st := range stats {
		byAction[st.Action] = st
	}
	s.Equal(1, byAction[audit.ActionCreate].Count)
	s.Equal(3, byAction[audit.ActionUpdate].Count)
	s.False(byAction[audit.ActionUpdate].First.After(byAction[audit.ActionUpdate].Last))
}

func (s *RecorderSuite) TestExportBundle() {
	s.recorder.Record(s.ctx, s.proposal.UUID, "proposal_created", 1, "", nil)
	s.recorder.Record(s.ctx, s.proposal.UUID, "proposal_submitted", 1, "", nil)

	bundle, err := s.recorder.Export(s.ctx, s.proposal.UUID)
	s.Require().NoError(err)
	s.Equal(audit.ExportVersion, bundle.Version)
	s.Equal(s.proposal.UUID, bundle.ProposalUUID)
	s.Len(bundle.Entries, 2)
	s.Len(bundle.Stats, 2)
	s.Equal(2, bundle.Snapshot["entry_count"])
}

type failingStore struct{}

func (failingStore) Append(context.Context, *audit.Entry) error {
	return errors.New("disk full")
}

func (failingStore) ListByProposal(context.Context, int64, int, int) ([]audit.Entry, error) {
	return nil, errors.New("disk full")
}

func (failingStore) StatsByProposal(context.Context, int64) ([]audit.ActionStat, error) {
	return nil, errors.New("disk full")
}

type panickingStore struct{}

func (panickingStore) Append(context.Context, *audit.Entry) error {
	panic("store exploded")
}

func (panickingStore) ListByProposal(context.Context, int64, int, int) ([]audit.Entry, error) {
	return nil, nil
}

func (panickingStore) StatsByProposal(context.Context, int64) ([]audit.ActionStat, error) {
	return nil, nil
}
