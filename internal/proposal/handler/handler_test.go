package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"eventdesk/internal/audit"
	auditstore "eventdesk/internal/audit/store"
	notifservice "eventdesk/internal/notification/service"
	notifstore "eventdesk/internal/notification/store"
	"eventdesk/internal/proposal/handler"
	"eventdesk/internal/proposal/service"
	proposalstore "eventdesk/internal/proposal/store"
	userstore "eventdesk/internal/user/store"
)

type HandlerSuite struct {
	suite.Suite

	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	proposals := proposalstore.NewInMemory()
	entries := auditstore.NewInMemory()
	notifications := notifstore.NewInMemory()

	users := userstore.NewInMemory()
	s.Require().NoError(users.Create(context.Background(), &userstore.User{
		Name: "admin", Email: "admin@example.com", Role: userstore.RoleAdmin, Approved: true,
	}))

	recorder := audit.NewRecorder(entries, proposals)
	dispatcher := notifservice.New(notifications, users)
	svc := service.New(proposals, recorder, dispatcher, users)

	s.router = chi.NewRouter()
	handler.New(svc, recorder, slog.Default()).Register(s.router)
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *HandlerSuite) createProposal() string {
	rec := s.do(http.MethodPost, "/proposals", map[string]any{
		"submitter_id": 5,
		"title":        "Hackathon",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return s.decode(rec)["uuid"].(string)
}

func (s *HandlerSuite) TestCreateAndGet() {
	id := s.createProposal()

	rec := s.do(http.MethodGet, "/proposals/"+id, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	body := s.decode(rec)
	s.Equal("draft", body["status"])
	s.Equal("Hackathon", body["title"])
}

func (s *HandlerSuite) TestCreateValidation() {
	rec := s.do(http.MethodPost, "/proposals", map[string]any{"title": "no submitter"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Equal("validation", s.decode(rec)["error"])
}

func (s *HandlerSuite) TestSubmitAndReview() {
	id := s.createProposal()

	rec := s.do(http.MethodPost, fmt.Sprintf("/proposals/%s/submit", id), map[string]any{"actor_id": 5})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("pending", s.decode(rec)["status"])

	rec = s.do(http.MethodPost, fmt.Sprintf("/proposals/%s/transition", id), map[string]any{
		"status":   "approved",
		"actor_id": 1,
		"comment":  "ship it",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	body := s.decode(rec)
	s.Equal("approved", body["status"])
	s.Equal("ship it", body["admin_comments"])
	s.NotNil(body["approved_at"])
}

func (s *HandlerSuite) TestInvalidTransitionIs422() {
	id := s.createProposal()

	rec := s.do(http.MethodPost, fmt.Sprintf("/proposals/%s/transition", id), map[string]any{
		"status":   "approved",
		"actor_id": 1,
	})
	s.Require().Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Equal("invalid_transition", s.decode(rec)["error"])
}

func (s *HandlerSuite) TestUnknownProposalIs404() {
	rec := s.do(http.MethodGet, "/proposals/"+uuid.NewString(), nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)
	s.Equal("not_found", s.decode(rec)["error"])
}

func (s *HandlerSuite) TestBadUUIDIs400() {
	rec := s.do(http.MethodGet, "/proposals/not-a-uuid", nil)
	s.Require().Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestDelete() {
	id := s.createProposal()

	rec := s.do(http.MethodDelete, "/proposals/"+id+"?actor_id=5", nil)
	s.Require().Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/proposals/"+id, nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestAuditEndpoints() {
	id := s.createProposal()
	s.do(http.MethodPost, fmt.Sprintf("/proposals/%s/submit", id), map[string]any{"actor_id": 5})

	rec := s.do(http.MethodGet, fmt.Sprintf("/proposals/%s/audit", id), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	entries := s.decode(rec)["entries"].([]any)
	s.Len(entries, 2)

	rec = s.do(http.MethodGet, fmt.Sprintf("/proposals/%s/audit/stats", id), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, fmt.Sprintf("/proposals/%s/audit/export", id), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(audit.ExportVersion, s.decode(rec)["version"])
}
