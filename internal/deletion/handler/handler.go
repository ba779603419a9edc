// Package handler exposes the deletion lifecycle over HTTP: eligibility
// checks, scheduling, and the operator-facing erase and sweep endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"convene/internal/deletion/eligibility"
	"convene/internal/transport/http/shared"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	"convene/pkg/requestcontext"
)

// Service defines the deletion operations the transport delegates to.
type Service interface {
	CanDelete(ctx context.Context, accountID id.AccountID) (eligibility.Result, error)
	Schedule(ctx context.Context, accountID id.AccountID) (time.Time, error)
	Erase(ctx context.Context, accountID id.AccountID) error
}

// Sweeper drains due deletions on demand.
type Sweeper interface {
	RunDue(ctx context.Context, now time.Time) (int, error)
}

type Handler struct {
	service Service
	sweeper Sweeper
	logger  *slog.Logger
}

func New(service Service, sweeper Sweeper, logger *slog.Logger) *Handler {
	return &Handler{service: service, sweeper: sweeper, logger: logger}
}

// Register mounts the deletion routes onto the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/accounts/{accountID}/deletion", func(r chi.Router) {
		r.Get("/eligibility", h.handleEligibility)
		r.Post("/", h.handleSchedule)
	})
	r.Post("/internal/accounts/{accountID}/erase", h.handleErase)
	r.Post("/internal/sweep", h.handleSweep)
}

type eligibilityResponse struct {
	Eligible      bool       `json:"eligible"`
	Reason        string     `json:"reason,omitempty"`
	EligibleAfter *time.Time `json:"eligibleAfter,omitempty"`
}

func (h *Handler) handleEligibility(w http.ResponseWriter, r *http.Request) {
	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.service.CanDelete(r.Context(), accountID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, eligibilityResponse{
		Eligible:      result.Eligible,
		Reason:        string(result.Reason),
		EligibleAfter: result.EligibleAfter,
	})
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	deleteAt, err := h.service.Schedule(ctx, accountID)
	if err != nil {
		h.logger.WarnContext(ctx, "deletion scheduling rejected",
			"request_id", requestcontext.RequestID(ctx),
			"code", string(dErrors.CodeOf(err)),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusAccepted, map[string]time.Time{"deleteAt": deleteAt})
}

func (h *Handler) handleErase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.Erase(ctx, accountID); err != nil {
		h.logger.WarnContext(ctx, "manual erasure rejected",
			"request_id", requestcontext.RequestID(ctx),
			"code", string(dErrors.CodeOf(err)),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.sweeper.RunDue(ctx, requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "sweep run failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "sweep run failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"erased": count})
}
