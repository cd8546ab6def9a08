package inventory_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ws-registration/internal/auth"
	"ws-registration/internal/inventory"
	"ws-registration/internal/inventory/db"
	"ws-registration/internal/inventory/inventory_api"
	"ws-registration/internal/logger"
	"ws-registration/internal/models"
)

func setupRouter(t *testing.T) *chi.Mux {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	for _, model := range []interface{}{
		(*models.InventoryStatus)(nil),
		(*models.InventoryTransaction)(nil),
		(*models.InventoryExpansion)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(context.Background())
		require.NoError(t, err)
	}

	store := &db.DB{Bun: bunDB}
	require.NoError(t, store.SeedCity(context.Background(), models.InventoryStatus{
		CityID:   "atlanta",
		PublicGA: 35, PublicVIP: 10,
		ActualGA: 35, ActualVIP: 10,
	}))

	svc := inventory.NewService(store, nil, logger.NewLogger())
	handler := inventory_api.NewHandler(svc)

	r := chi.NewRouter()
	// Tests bypass the JWT middleware and inject the admin identity directly.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), auth.AdminIdentityKey, "admin@test")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/inventory", handler.GetAllStatuses)
	r.Get("/inventory/analytics", handler.GetAnalytics)
	r.Get("/inventory/{cityID}/check", handler.CheckStatus)
	r.Post("/inventory/{cityID}/expand", handler.Expand)
	r.Post("/inventory/{cityID}/reset", handler.Reset)
	r.Post("/inventory/bulk-expand", handler.BulkExpand)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCheckStatusEndpoint(t *testing.T) {
	r := setupRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/inventory/atlanta/check?tier=ga&quantity=2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Available bool `json:"available"`
			Remaining int  `json:"remaining"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Data.Available)
	assert.Equal(t, 35, resp.Data.Remaining)
}

func TestCheckStatusEndpoint_BadInput(t *testing.T) {
	r := setupRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/inventory/atlanta/check?tier=platinum", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/inventory/atlanta/check?tier=ga&quantity=oops", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckStatusEndpoint_UnknownCity(t *testing.T) {
	r := setupRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/inventory/nowhere/check?tier=ga", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp struct {
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CITY_NOT_FOUND", resp.ErrorCode)
}

func TestExpandEndpoint(t *testing.T) {
	r := setupRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/inventory/atlanta/expand", map[string]interface{}{
		"tier":             "vip",
		"additional_spots": 5,
		"reason":           "venue upgrade",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data models.InventoryStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 15, resp.Data.ActualVIP)
	assert.Equal(t, 10, resp.Data.PublicVIP)
}

func TestResetEndpoint_MissingReason(t *testing.T) {
	r := setupRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/inventory/atlanta/reset", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkExpandEndpoint_PartialFailure(t *testing.T) {
	r := setupRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/inventory/bulk-expand", map[string]interface{}{
		"city_ids":         []string{"atlanta", "nowhere"},
		"tier":             "ga",
		"additional_spots": 10,
		"reason":           "venue upgrade",
	})
	assert.Equal(t, http.StatusMultiStatus, rec.Code)

	var resp struct {
		Data inventory.BulkResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Success)
	assert.Equal(t, 1, resp.Data.SuccessCount)
	assert.Equal(t, 1, resp.Data.FailureCount)
}
