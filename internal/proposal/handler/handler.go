// Package handler is the thin HTTP layer over the proposal service and the
// audit recorder. It decodes, delegates and encodes; workflow rules live in
// the services. Caller identity arrives as an explicit actor_id because
// authentication is handled upstream of this service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"eventdesk/internal/audit"
	"eventdesk/internal/proposal/models"
	"eventdesk/internal/proposal/service"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/httputil"
)

// Service is the proposal operations surface the handler needs.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Proposal, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	Transition(ctx context.Context, proposalUUID uuid.UUID, newStatus models.ProposalStatus, actorID int64, comment string) (*models.Proposal, error)
	Delete(ctx context.Context, proposalUUID uuid.UUID, actorID int64) error
}

// Auditor is the audit read surface the handler needs.
type Auditor interface {
	List(ctx context.Context, proposalUUID uuid.UUID, limit, offset int) ([]audit.Entry, error)
	Stats(ctx context.Context, proposalUUID uuid.UUID) ([]audit.ActionStat, error)
	Export(ctx context.Context, proposalUUID uuid.UUID) (*audit.ExportBundle, error)
}

// Handler wires proposal routes to the service.
type Handler struct {
	proposals Service
	auditor   Auditor
	logger    *slog.Logger
}

func New(proposals Service, auditor Auditor, logger *slog.Logger) *Handler {
	return &Handler{proposals: proposals, auditor: auditor, logger: logger}
}

// Register mounts the proposal routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/proposals", h.handleCreate)
	r.Get("/proposals/{uuid}", h.handleGet)
	r.Post("/proposals/{uuid}/submit", h.handleSubmit)
	r.Post("/proposals/{uuid}/transition", h.handleTransition)
	r.Delete("/proposals/{uuid}", h.handleDelete)
	r.Get("/proposals/{uuid}/audit", h.handleAuditList)
	r.Get("/proposals/{uuid}/audit/stats", h.handleAuditStats)
	r.Get("/proposals/{uuid}/audit/export", h.handleAuditExport)
}

type proposalResponse struct {
	UUID          string     `json:"uuid"`
	SubmitterID   int64      `json:"submitter_id"`
	Title         string     `json:"title"`
	Status        string     `json:"status"`
	ReportStatus  string     `json:"report_status"`
	EventStatus   string     `json:"event_status"`
	AdminComments string     `json:"admin_comments,omitempty"`
	ReviewerID    *int64     `json:"reviewer_id,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toResponse(p *models.Proposal) proposalResponse {
	return proposalResponse{
		UUID:          p.UUID.String(),
		SubmitterID:   p.SubmitterID,
		Title:         p.Title,
		Status:        string(p.Status),
		ReportStatus:  string(p.ReportStatus),
		EventStatus:   string(p.EventStatus),
		AdminComments: p.AdminComments,
		ReviewerID:    p.ReviewerID,
		SubmittedAt:   p.SubmittedAt,
		ReviewedAt:    p.ReviewedAt,
		ApprovedAt:    p.ApprovedAt,
		CreatedAt:     p.CreatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubmitterID  int64      `json:"submitter_id"`
		Organization string     `json:"organization"`
		ContactName  string     `json:"contact_name"`
		ContactEmail string     `json:"contact_email"`
		Title        string     `json:"title"`
		Description  string     `json:"description"`
		EventDate    *time.Time `json:"event_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	p, err := h.proposals.Create(r.Context(), service.CreateInput{
		SubmitterID:  req.SubmitterID,
		Organization: req.Organization,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		Title:        req.Title,
		Description:  req.Description,
		EventDate:    req.EventDate,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "create proposal")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUUID(w, r)
	if !ok {
		return
	}
	p, err := h.proposals.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "get proposal")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUUID(w, r)
	if !ok {
		return
	}
	var req struct {
		ActorID int64 `json:"actor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	p, err := h.proposals.Transition(r.Context(), id, models.StatusPending, req.ActorID, "")
	if err != nil {
		h.writeServiceError(w, r, err, "submit proposal")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUUID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status  string `json:"status"`
		ActorID int64  `json:"actor_id"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	p, err := h.proposals.Transition(r.Context(), id, models.ProposalStatus(req.Status), req.ActorID, req.Comment)
	if err != nil {
		h.writeServiceError(w, r, err, "transition proposal")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUUID(w, r)
	if !ok {
		return
	}
	actorID, _ := strconv.ParseInt(r.URL.Query().Get("actor_id"), 10, 64)
	if err := h.proposals.Delete(r.Context(), id, actorID); err != nil {
		h.writeServiceError(w, r, err, "delete proposal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAuditList(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUUID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.auditor.List(r.Context(), id, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "list audit entries")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUUID(w, r)
	if !ok {
		return
	}
	stats, err := h.auditor.Stats(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "audit stats")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *Handler) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUUID(w, r)
	if !ok {
		return
	}
	bundle, err := h.auditor.Export(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "audit export")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bundle)
}

func (h *Handler) parseUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid proposal uuid"))
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), op+" failed", "error", err.Error())
	}
	httputil.WriteError(w, err)
}
