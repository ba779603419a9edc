// Package handler exposes the registration lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"convene/internal/registration/models"
	"convene/internal/transport/http/shared"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	"convene/pkg/requestcontext"
)

// Service defines the registration operations the transport delegates to.
type Service interface {
	Register(ctx context.Context, accountID id.AccountID, eventID id.EventID, extra map[string]string) (*models.Registration, error)
	Cancel(ctx context.Context, accountID id.AccountID, eventID id.EventID, reason string) (*models.Registration, error)
	CountActive(ctx context.Context, eventID id.EventID) (int, error)
	IsActive(ctx context.Context, accountID id.AccountID, eventID id.EventID) (bool, error)
	ListByEvent(ctx context.Context, eventID id.EventID) ([]models.Registration, error)
	EventsPastDeadline(ctx context.Context) (int, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the registration routes onto the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/events/{eventID}/registrations", func(r chi.Router) {
		r.Post("/", h.handleRegister)
		r.Post("/cancel", h.handleCancel)
		r.Get("/", h.handleList)
		r.Get("/count", h.handleCount)
		r.Get("/{accountID}", h.handleStatus)
	})
	r.Get("/internal/stats/closed-events", h.handleClosedEvents)
}

type registerRequest struct {
	AccountID string            `json:"accountId"`
	Extra     map[string]string `json:"extra,omitempty"`
}

type cancelRequest struct {
	AccountID string `json:"accountId"`
	Reason    string `json:"reason,omitempty"`
}

type registrationResponse struct {
	ID           string            `json:"id"`
	AccountID    string            `json:"accountId"`
	EventID      string            `json:"eventId"`
	Extra        map[string]string `json:"extra,omitempty"`
	RegisteredAt time.Time         `json:"registeredAt"`
	CancelledAt  *time.Time        `json:"cancelledAt,omitempty"`
	CancelReason string            `json:"cancelReason,omitempty"`
}

func toResponse(reg *models.Registration) registrationResponse {
	return registrationResponse{
		ID:           reg.ID.String(),
		AccountID:    reg.AccountID.String(),
		EventID:      reg.EventID.String(),
		Extra:        reg.Extra,
		RegisteredAt: reg.RegisteredAt,
		CancelledAt:  reg.CancelledAt,
		CancelReason: reg.CancelReason,
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	accountID, err := id.ParseAccountID(req.AccountID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.service.Register(ctx, accountID, eventID, req.Extra)
	if err != nil {
		h.logRejection(ctx, "registration rejected", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, toResponse(reg))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	accountID, err := id.ParseAccountID(req.AccountID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.service.Cancel(ctx, accountID, eventID, req.Reason)
	if err != nil {
		h.logRejection(ctx, "cancellation rejected", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toResponse(reg))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	regs, err := h.service.ListByEvent(r.Context(), eventID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	out := make([]registrationResponse, 0, len(regs))
	for i := range regs {
		out = append(out, toResponse(&regs[i]))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"registrations": out})
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	count, err := h.service.CountActive(r.Context(), eventID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	active, err := h.service.IsActive(r.Context(), accountID, eventID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (h *Handler) handleClosedEvents(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.EventsPastDeadline(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"closedEvents": count})
}

func (h *Handler) logRejection(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"code", string(dErrors.CodeOf(err)),
		"error", err.Error(),
	)
}
