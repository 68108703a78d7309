package adjustments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cadenza-hq/cadenza/internal/observability"
	"github.com/cadenza-hq/cadenza/internal/platform/httpx"
	"github.com/cadenza-hq/cadenza/internal/shared"
)

// Handler exposes the term adjustment operations.
type Handler struct {
	logger      *slog.Logger
	validate    *validator.Validate
	calculator  *Calculator
	workflow    *Workflow
	idempotency *shared.IdempotencyStore
	metrics     *observability.Metrics
}

// NewHandler wires the handler.
func NewHandler(
	logger *slog.Logger,
	validate *validator.Validate,
	calculator *Calculator,
	workflow *Workflow,
	idempotency *shared.IdempotencyStore,
	metrics *observability.Metrics,
) *Handler {
	return &Handler{
		logger:      logger,
		validate:    validate,
		calculator:  calculator,
		workflow:    workflow,
		idempotency: idempotency,
		metrics:     metrics,
	}
}

// Preview calculates an adjustment and stores it as a draft.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req PreviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if key := r.Header.Get("Idempotency-Key"); key != "" {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "term_adjustments"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}

	resp, err := h.calculator.Preview(r.Context(), orgID, req, actor.UserID)
	if err != nil {
		h.logger.Error("adjustment preview",
			slog.Int64("org_id", orgID),
			slog.Int64("student_id", req.StudentID),
			slog.String("step", "preview"),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.metrics.PreviewCalculated(string(req.AdjustmentType))
	httpx.JSON(w, http.StatusOK, resp)
}

// Confirm applies a draft adjustment.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	adjustmentID, err := strconv.ParseInt(chi.URLParam(r, "adjustmentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid adjustment id")
		return
	}

	var req ConfirmRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
			return
		}
	}

	resp, err := h.workflow.Confirm(r.Context(), orgID, adjustmentID, req.GenerateDocument(), *actor)
	if err != nil {
		if errors.Is(err, httpx.ErrConflict) {
			h.metrics.ConfirmConflict()
		} else {
			h.logger.Error("adjustment confirm",
				slog.Int64("org_id", orgID),
				slog.Int64("adjustment_id", adjustmentID),
				slog.String("step", "confirm"),
				slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	h.metrics.AdjustmentConfirmed(string(resp.Type))
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) orgID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	orgID, err := strconv.ParseInt(chi.URLParam(r, "orgID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid organisation id")
		return 0, false
	}
	return orgID, true
}
