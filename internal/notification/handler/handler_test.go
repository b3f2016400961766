package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"eventdesk/internal/notification/handler"
	"eventdesk/internal/notification/service"
	"eventdesk/internal/notification/store"
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
	users := userstore.NewInMemory()
	svc := service.New(store.NewInMemory(), users)

	s.router = chi.NewRouter()
	handler.New(svc, slog.Default()).Register(s.router)
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

func (s *HandlerSuite) createNotification(recipientID int64, priority string) map[string]any {
	rec := s.do(http.MethodPost, "/notifications", map[string]any{
		"recipient_id": recipientID,
		"title":        "t",
		"message":      "m",
		"priority":     priority,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return s.decode(rec)
}

func (s *HandlerSuite) TestCreateAndList() {
	body := s.createNotification(7, "high")
	s.Equal("delivered", body["status"])
	s.Equal("high", body["priority"])

	rec := s.do(http.MethodGet, "/notifications?user_id=7", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	list := s.decode(rec)["notifications"].([]any)
	s.Len(list, 1)
}

func (s *HandlerSuite) TestCreateValidation() {
	rec := s.do(http.MethodPost, "/notifications", map[string]any{"title": "t"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Equal("validation", s.decode(rec)["error"])
}

func (s *HandlerSuite) TestListRequiresUserID() {
	rec := s.do(http.MethodGet, "/notifications", nil)
	s.Require().Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestUnreadCountAndMarkRead() {
	created := s.createNotification(7, "normal")
	s.createNotification(7, "normal")

	rec := s.do(http.MethodGet, "/notifications/unread-count?user_id=7", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(float64(2), s.decode(rec)["unread"])

	rec = s.do(http.MethodPost, "/notifications/mark-read", map[string]any{
		"user_id": 7,
		"ids":     []any{created["id"]},
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(float64(1), s.decode(rec)["marked"])

	rec = s.do(http.MethodGet, "/notifications/unread-count?user_id=7", nil)
	s.Equal(float64(1), s.decode(rec)["unread"])
}

func (s *HandlerSuite) TestBroadcast() {
	rec := s.do(http.MethodPost, "/notifications/broadcast", map[string]any{
		"recipient_ids": []int64{1, 2, 3},
		"title":         "Maintenance",
		"message":       "Saturday downtime",
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(float64(3), s.decode(rec)["created"])

	for id := 1; id <= 3; id++ {
		rec := s.do(http.MethodGet, fmt.Sprintf("/notifications/unread-count?user_id=%d", id), nil)
		s.Equal(float64(1), s.decode(rec)["unread"])
	}
}

func (s *HandlerSuite) TestCleanup() {
	rec := s.do(http.MethodPost, "/notifications/cleanup", nil)
	s.Require().Equal(http.StatusNoContent, rec.Code)
}

func (s *HandlerSuite) TestPreferences() {
	rec := s.do(http.MethodPut, "/notifications/preferences", map[string]any{
		"user_id": 7,
		"type":    "proposal",
		"in_app":  true,
		"email":   true,
	})
	s.Require().Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/notifications/preferences?user_id=7&type=proposal", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/notifications/preferences?user_id=7&type=billing", nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)
}
