package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEdgeOf(t *testing.T) {
	cases := []struct {
		from, to ProposalStatus
		kind     EdgeKind
		ok       bool
	}{
		{StatusDraft, StatusPending, EdgeSubmit, true},
		{StatusPending, StatusApproved, EdgeReview, true},
		{StatusPending, StatusDenied, EdgeReview, true},
		{StatusPending, StatusRevisionRequested, EdgeReview, true},
		{StatusRevisionRequested, StatusPending, EdgeResubmit, true},

		{StatusDraft, StatusApproved, 0, false},
		{StatusDraft, StatusDenied, 0, false},
		{StatusApproved, StatusPending, 0, false},
		{StatusApproved, StatusDenied, 0, false},
		{StatusDenied, StatusApproved, 0, false},
		{StatusDenied, StatusPending, 0, false},
		{StatusRevisionRequested, StatusApproved, 0, false},
		{StatusPending, StatusDraft, 0, false},
		{StatusPending, StatusPending, 0, false},
	}
	for _, tc := range cases {
		kind, ok := EdgeOf(tc.from, tc.to)
		assert.Equal(t, tc.ok, ok, "%s -> %s", tc.from, tc.to)
		if tc.ok {
			assert.Equal(t, tc.kind, kind, "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestProposalStatusValid(t *testing.T) {
	for _, status := range []ProposalStatus{
		StatusDraft, StatusPending, StatusApproved, StatusDenied, StatusRevisionRequested,
	} {
		assert.True(t, status.Valid(), status)
	}
	assert.False(t, ProposalStatus("published").Valid())
	assert.False(t, ProposalStatus("").Valid())
}

func TestNewProposalDefaults(t *testing.T) {
	p := NewProposal(7, "Film Night")
	assert.Equal(t, StatusDraft, p.Status)
	assert.Equal(t, ReportNotApplicable, p.ReportStatus)
	assert.Equal(t, EventScheduled, p.EventStatus)
	assert.NotEqual(t, p.UUID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Nil(t, p.SubmittedAt)
}
