// Package handler is the thin HTTP layer over the notification dispatcher.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"eventdesk/internal/notification/models"
	"eventdesk/internal/notification/service"
	"eventdesk/internal/notification/store"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/httputil"
)

// Service is the dispatcher surface the handler needs.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Notification, error)
	List(ctx context.Context, userID int64, f store.Filter) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkAsRead(ctx context.Context, userID int64, ids ...int64) (int64, error)
	Cleanup(ctx context.Context) error
	Broadcast(ctx context.Context, in service.BroadcastInput) (int, error)
	UpsertPreference(ctx context.Context, p *models.Preference) error
	GetPreference(ctx context.Context, userID int64, typ string) (*models.Preference, error)
}

// Handler wires notification routes to the dispatcher.
type Handler struct {
	notifications Service
	logger        *slog.Logger
}

func New(notifications Service, logger *slog.Logger) *Handler {
	return &Handler{notifications: notifications, logger: logger}
}

// Register mounts the notification routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/notifications", h.handleCreate)
	r.Get("/notifications", h.handleList)
	r.Get("/notifications/unread-count", h.handleUnreadCount)
	r.Post("/notifications/mark-read", h.handleMarkRead)
	r.Post("/notifications/broadcast", h.handleBroadcast)
	r.Post("/notifications/cleanup", h.handleCleanup)
	r.Put("/notifications/preferences", h.handleUpsertPreference)
	r.Get("/notifications/preferences", h.handleGetPreference)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipientID int64          `json:"recipient_id"`
		SenderID    *int64         `json:"sender_id"`
		Type        string         `json:"type"`
		Title       string         `json:"title"`
		Message     string         `json:"message"`
		Priority    string         `json:"priority"`
		Metadata    map[string]any `json:"metadata"`
		Tags        []string       `json:"tags"`
		ExpiresAt   *time.Time     `json:"expires_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	n, err := h.notifications.Create(r.Context(), service.CreateInput{
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		Priority:    req.Priority,
		Metadata:    req.Metadata,
		Tags:        req.Tags,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "create notification")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(n))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	list, err := h.notifications.List(r.Context(), userID, store.Filter{
		Page:       page,
		Limit:      limit,
		UnreadOnly: q.Get("unread_only") == "true",
		Priority:   q.Get("priority"),
		Status:     q.Get("status"),
		Type:       q.Get("type"),
	})
	if err != nil {
		h.writeServiceError(w, r, err, "list notifications")
		return
	}

	out := make([]notificationResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	count, err := h.notifications.UnreadCount(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err, "unread count")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64   `json:"user_id"`
		IDs    []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	count, err := h.notifications.MarkAsRead(r.Context(), req.UserID, req.IDs...)
	if err != nil {
		h.writeServiceError(w, r, err, "mark read")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"marked": count})
}

func (h *Handler) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipientIDs []int64    `json:"recipient_ids"`
		All          bool       `json:"all"`
		Title        string     `json:"title"`
		Message      string     `json:"message"`
		Priority     string     `json:"priority"`
		ExpiresAt    *time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	created, err := h.notifications.Broadcast(r.Context(), service.BroadcastInput{
		RecipientIDs: req.RecipientIDs,
		All:          req.All,
		Title:        req.Title,
		Message:      req.Message,
		Priority:     req.Priority,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "broadcast")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"created": created})
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.Cleanup(r.Context()); err != nil {
		h.writeServiceError(w, r, err, "cleanup")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpsertPreference(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    int64  `json:"user_id"`
		Type      string `json:"type"`
		InApp     bool   `json:"in_app"`
		Email     bool   `json:"email"`
		SMS       bool   `json:"sms"`
		Push      bool   `json:"push"`
		Frequency string `json:"frequency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	err := h.notifications.UpsertPreference(r.Context(), &models.Preference{
		UserID:    req.UserID,
		Type:      req.Type,
		InApp:     req.InApp,
		Email:     req.Email,
		SMS:       req.SMS,
		Push:      req.Push,
		Frequency: req.Frequency,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "save preference")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	p, err := h.notifications.GetPreference(r.Context(), userID, r.URL.Query().Get("type"))
	if err != nil {
		h.writeServiceError(w, r, err, "load preference")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

type notificationResponse struct {
	ID          int64      `json:"id"`
	UUID        string     `json:"uuid"`
	RecipientID int64      `json:"recipient_id"`
	Type        string     `json:"type,omitempty"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toResponse(n *models.Notification) notificationResponse {
	return notificationResponse{
		ID:          n.ID,
		UUID:        n.UUID.String(),
		RecipientID: n.RecipientID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		Priority:    string(n.Priority),
		Status:      string(n.Status),
		ExpiresAt:   n.ExpiresAt,
		DeliveredAt: n.DeliveredAt,
		ReadAt:      n.ReadAt,
		CreatedAt:   n.CreatedAt,
	}
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "user_id is required"))
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), op+" failed", "error", err.Error())
	}
	httputil.WriteError(w, err)
}
