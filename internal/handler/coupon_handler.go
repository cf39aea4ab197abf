package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"coupon-intake/internal/model"
	"coupon-intake/internal/service"

	"github.com/rs/zerolog"
)

// CouponHandler handles coupon-related HTTP requests.
type CouponHandler struct {
	service service.CouponService
	logger  zerolog.Logger
}

// NewCouponHandler creates a new coupon handler.
func NewCouponHandler(service service.CouponService, logger zerolog.Logger) *CouponHandler {
	return &CouponHandler{
		service: service,
		logger:  logger.With().Str("handler", "coupon").Logger(),
	}
}

// Create handles POST /api/coupons requests.
//
// Responses follow the intake contract: 201 with the stored coupon, 422
// with the first violated rule's message, 409 for a duplicate code44,
// and 500 naming the failed dependency for infrastructure errors.
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var req model.SubmitCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	coupon, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		var validationErr *model.ValidationError
		var infraErr *model.InfrastructureError

		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusUnprocessableEntity, validationErr.Message, h.logger)
		case errors.Is(err, model.ErrCouponExists):
			writeError(w, http.StatusConflict, model.ErrCouponExists.Message, h.logger)
		case errors.As(err, &infraErr):
			// Name the failed dependency without leaking connection details.
			writeError(w, http.StatusInternalServerError, infraErr.Dependency+" is unavailable", h.logger)
		default:
			writeError(w, http.StatusInternalServerError, "internal server error", h.logger)
		}
		return
	}

	writeJSON(w, http.StatusCreated, coupon)
}

// GetByCode44 handles GET /api/coupons/{code44} requests.
func (h *CouponHandler) GetByCode44(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	code44 := strings.TrimPrefix(r.URL.Path, "/api/coupons/")
	if code44 == "" {
		writeError(w, http.StatusBadRequest, "coupon code is required", h.logger)
		return
	}

	coupon, err := h.service.GetByCode44(r.Context(), code44)
	if err != nil {
		var infraErr *model.InfrastructureError
		if errors.As(err, &infraErr) {
			writeError(w, http.StatusInternalServerError, infraErr.Dependency+" is unavailable", h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error", h.logger)
		return
	}

	if coupon == nil {
		writeError(w, http.StatusNotFound, "coupon not found", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, coupon)
}
