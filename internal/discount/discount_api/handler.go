package discount_api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ws-registration/internal/auth"
	"ws-registration/internal/discount"
	"ws-registration/internal/discount/db"
	"ws-registration/internal/utils"
)

type Handler struct {
	DiscountService *discount.Service
}

func NewHandler(service *discount.Service) *Handler {
	return &Handler{DiscountService: service}
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, discount.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, discount.ErrAlreadyUsed):
		return http.StatusConflict, "DISCOUNT_ALREADY_USED"
	case errors.Is(err, discount.ErrUsageNotFound):
		return http.StatusNotFound, "USAGE_NOT_FOUND"
	default:
		return http.StatusInternalServerError, "STORE_ERROR"
	}
}

func writeError(w http.ResponseWriter, message string, err error) {
	status, code := mapError(err)
	utils.WriteJSON(w, status, utils.ErrorResponse(message, code, err.Error()))
}

// GetUsageStats handles GET /admin/discounts/usage
// Query params: city_id, from, to (RFC 3339), limit, offset.
func (h *Handler) GetUsageStats(w http.ResponseWriter, r *http.Request) {
	filters := db.UsageFilters{
		CityID: r.URL.Query().Get("city_id"),
		Limit:  50,
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid 'from' timestamp", "INVALID_INPUT", err.Error()))
			return
		}
		filters.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid 'to' timestamp", "INVALID_INPUT", err.Error()))
			return
		}
		filters.To = t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filters.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filters.Offset = n
		}
	}

	stats, err := h.DiscountService.GetMemberDiscountUsageStats(r.Context(), filters)
	if err != nil {
		writeError(w, "Failed to load discount usage stats", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Discount usage stats", stats))
}

// CheckUsage handles GET /admin/discounts/usage/{email}
func (h *Handler) CheckUsage(w http.ResponseWriter, r *http.Request) {
	check, err := h.DiscountService.CheckMemberDiscountUsage(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, "Usage check failed", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Discount usage", check))
}

type resetRequest struct {
	Reason string `json:"reason"`
}

// ResetUsage handles POST /admin/discounts/usage/{email}/reset
func (h *Handler) ResetUsage(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	authorizedBy := auth.AdminIdentityFromContext(r.Context())

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "INVALID_INPUT", err.Error()))
		return
	}

	if err := h.DiscountService.ResetMemberDiscountUsage(r.Context(), email, authorizedBy, req.Reason); err != nil {
		writeError(w, "Discount reset failed", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Discount usage reset", nil))
}
