package inventory_api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ws-registration/internal/auth"
	"ws-registration/internal/inventory"
	"ws-registration/internal/models"
	"ws-registration/internal/utils"
)

type Handler struct {
	InventoryService *inventory.Service
}

func NewHandler(service *inventory.Service) *Handler {
	return &Handler{InventoryService: service}
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, inventory.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, inventory.ErrCityNotFound):
		return http.StatusNotFound, "CITY_NOT_FOUND"
	case errors.Is(err, inventory.ErrInsufficientInventory):
		return http.StatusConflict, "INSUFFICIENT_INVENTORY"
	default:
		return http.StatusInternalServerError, "STORE_ERROR"
	}
}

func writeError(w http.ResponseWriter, message string, err error) {
	status, code := mapError(err)
	utils.WriteJSON(w, status, utils.ErrorResponse(message, code, err.Error()))
}

// GetAllStatuses handles GET /admin/inventory
func (h *Handler) GetAllStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.InventoryService.GetAllInventoryStatuses(r.Context())
	if err != nil {
		writeError(w, "Failed to load inventory statuses", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Inventory statuses", statuses))
}

type seedCityRequest struct {
	CityID    string `json:"city_id"`
	PublicGA  int    `json:"public_ga"`
	PublicVIP int    `json:"public_vip"`
	ActualGA  int    `json:"actual_ga"`
	ActualVIP int    `json:"actual_vip"`
}

// CreateCity handles POST /admin/inventory
func (h *Handler) CreateCity(w http.ResponseWriter, r *http.Request) {
	var req seedCityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "INVALID_INPUT", err.Error()))
		return
	}

	status, err := h.InventoryService.SeedCityInventory(r.Context(), req.CityID, req.PublicGA, req.PublicVIP, req.ActualGA, req.ActualVIP)
	if err != nil {
		writeError(w, "Failed to create city", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("City created", status))
}

// CheckStatus handles GET /admin/inventory/{cityID}/check?tier=ga&quantity=2
func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityID")
	tier, err := models.ParseTier(r.URL.Query().Get("tier"))
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid tier", "INVALID_INPUT", err.Error()))
		return
	}

	quantity := 1
	if q := r.URL.Query().Get("quantity"); q != "" {
		quantity, err = strconv.Atoi(q)
		if err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid quantity", "INVALID_INPUT", err.Error()))
			return
		}
	}

	result, err := h.InventoryService.CheckInventoryStatus(r.Context(), cityID, tier, quantity)
	if err != nil {
		writeError(w, "Inventory check failed", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Inventory check", result))
}

type expandRequest struct {
	Tier            string `json:"tier"`
	AdditionalSpots int    `json:"additional_spots"`
	Reason          string `json:"reason"`
	Public          bool   `json:"public"`
}

// Expand handles POST /admin/inventory/{cityID}/expand
func (h *Handler) Expand(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityID")
	authorizedBy := auth.AdminIdentityFromContext(r.Context())

	var req expandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "INVALID_INPUT", err.Error()))
		return
	}

	tier, err := models.ParseTier(req.Tier)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid tier", "INVALID_INPUT", err.Error()))
		return
	}

	var status *models.InventoryStatus
	if req.Public {
		status, err = h.InventoryService.ExpandPublicInventory(r.Context(), cityID, tier, req.AdditionalSpots, authorizedBy, req.Reason)
	} else {
		status, err = h.InventoryService.ExpandInventory(r.Context(), cityID, tier, req.AdditionalSpots, authorizedBy, req.Reason)
	}
	if err != nil {
		writeError(w, "Expansion failed", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Inventory expanded", status))
}

type resetRequest struct {
	Reason string `json:"reason"`
}

// Reset handles POST /admin/inventory/{cityID}/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityID")
	authorizedBy := auth.AdminIdentityFromContext(r.Context())

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "INVALID_INPUT", err.Error()))
		return
	}

	status, err := h.InventoryService.ResetInventory(r.Context(), cityID, authorizedBy, req.Reason)
	if err != nil {
		writeError(w, "Reset failed", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Inventory reset", status))
}

type bulkExpandRequest struct {
	CityIDs         []string `json:"city_ids"`
	Tier            string   `json:"tier"`
	AdditionalSpots int      `json:"additional_spots"`
	Reason          string   `json:"reason"`
}

// BulkExpand handles POST /admin/inventory/bulk-expand
func (h *Handler) BulkExpand(w http.ResponseWriter, r *http.Request) {
	authorizedBy := auth.AdminIdentityFromContext(r.Context())

	var req bulkExpandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "INVALID_INPUT", err.Error()))
		return
	}

	tier, err := models.ParseTier(req.Tier)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid tier", "INVALID_INPUT", err.Error()))
		return
	}

	result := h.InventoryService.BulkExpandInventory(r.Context(), req.CityIDs, tier, req.AdditionalSpots, authorizedBy, req.Reason)
	// Partial failure is reported, not treated as all-or-nothing.
	status := http.StatusOK
	if !result.Success {
		status = http.StatusMultiStatus
	}
	utils.WriteJSON(w, status, utils.SuccessResponse("Bulk expansion processed", result))
}

type bulkResetRequest struct {
	CityIDs []string `json:"city_ids"`
	Reason  string   `json:"reason"`
}

// BulkReset handles POST /admin/inventory/bulk-reset
func (h *Handler) BulkReset(w http.ResponseWriter, r *http.Request) {
	authorizedBy := auth.AdminIdentityFromContext(r.Context())

	var req bulkResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "INVALID_INPUT", err.Error()))
		return
	}

	result := h.InventoryService.BulkResetInventory(r.Context(), req.CityIDs, authorizedBy, req.Reason)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusMultiStatus
	}
	utils.WriteJSON(w, status, utils.SuccessResponse("Bulk reset processed", result))
}

// GetTransactions handles GET /admin/inventory/transactions?city_id=atlanta
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.InventoryService.GetInventoryTransactions(r.Context(), r.URL.Query().Get("city_id"))
	if err != nil {
		writeError(w, "Failed to load transactions", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Inventory transactions", txns))
}

// GetExpansions handles GET /admin/inventory/expansions?city_id=atlanta
func (h *Handler) GetExpansions(w http.ResponseWriter, r *http.Request) {
	exps, err := h.InventoryService.GetInventoryExpansions(r.Context(), r.URL.Query().Get("city_id"))
	if err != nil {
		writeError(w, "Failed to load expansions", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Inventory expansions", exps))
}

// GetAnalytics handles GET /admin/inventory/analytics
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.InventoryService.GetAllInventoryStatuses(r.Context())
	if err != nil {
		writeError(w, "Failed to load inventory statuses", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Inventory analytics", inventory.Summarize(statuses)))
}
