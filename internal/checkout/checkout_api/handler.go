package checkout_api

import (
	"encoding/json"
	"errors"
	"net/http"

	"ws-registration/internal/checkout"
	"ws-registration/internal/discount"
	"ws-registration/internal/inventory"
	"ws-registration/internal/utils"
)

type Handler struct {
	CheckoutService *checkout.Service
}

func NewHandler(service *checkout.Service) *Handler {
	return &Handler{CheckoutService: service}
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, inventory.ErrInvalidInput), errors.Is(err, discount.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, inventory.ErrCityNotFound):
		return http.StatusNotFound, "CITY_NOT_FOUND"
	default:
		return http.StatusInternalServerError, "STORE_ERROR"
	}
}

// Quote handles POST /checkout/quote
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req checkout.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "INVALID_INPUT", err.Error()))
		return
	}

	result, err := h.CheckoutService.Quote(r.Context(), req)
	if err != nil {
		status, code := mapError(err)
		utils.WriteJSON(w, status, utils.ErrorResponse("Quote failed", code, err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Checkout quote", result))
}

// Finalize handles POST /checkout/finalize. The caller supplies a confirmed
// payment intent; sold-out and discount conflicts come back as typed outcomes
// in a 200 body so the storefront can branch.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req checkout.FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "INVALID_INPUT", err.Error()))
		return
	}

	result, err := h.CheckoutService.Finalize(r.Context(), req)
	if err != nil {
		status, code := mapError(err)
		utils.WriteJSON(w, status, utils.ErrorResponse("Finalize failed", code, err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Checkout finalized", result))
}
