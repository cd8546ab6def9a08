package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ws-registration/internal/inventory/db"
	"ws-registration/internal/models"
	"ws-registration/internal/utils"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	// A single connection keeps concurrent writers serialized instead of
	// failing with a locked database.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	for _, model := range []interface{}{
		(*models.InventoryStatus)(nil),
		(*models.InventoryTransaction)(nil),
		(*models.InventoryExpansion)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(context.Background())
		if err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func seedCity(t *testing.T, store *db.DB, cityID string, publicGA, publicVIP, actualGA, actualVIP int) {
	err := store.SeedCity(context.Background(), models.InventoryStatus{
		CityID:    cityID,
		PublicGA:  publicGA,
		PublicVIP: publicVIP,
		ActualGA:  actualGA,
		ActualVIP: actualVIP,
	})
	require.NoError(t, err)
}

func TestSeedCityIsIdempotent(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedCity(t, store, "atlanta", 35, 10, 35, 10)

	// Re-seeding with different limits must not clobber the existing row
	err := store.SeedCity(context.Background(), models.InventoryStatus{
		CityID: "atlanta", PublicGA: 99, PublicVIP: 99, ActualGA: 99, ActualVIP: 99,
	})
	require.NoError(t, err)

	status, err := store.GetStatus(context.Background(), "atlanta")
	require.NoError(t, err)
	assert.Equal(t, 35, status.PublicGA)
	assert.Equal(t, 10, status.ActualVIP)
}

func TestGetStatus_UnknownCity(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := store.GetStatus(context.Background(), "nowhere")
	assert.ErrorIs(t, err, db.ErrCityNotFound)
}

func TestDecrement_ExactRemaining(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedCity(t, store, "atlanta", 35, 10, 35, 10)

	// Sell 34 of 35 GA seats
	status, err := store.Decrement(context.Background(), "atlanta", models.TierGA, 34)
	require.NoError(t, err)
	assert.Equal(t, 34, status.SoldGA)
	assert.Equal(t, 1, status.ActualAvailable(models.TierGA))

	// Test case: exactly the remaining quantity succeeds
	status, err = store.Decrement(context.Background(), "atlanta", models.TierGA, 1)
	require.NoError(t, err)
	assert.Equal(t, 35, status.SoldGA)
	assert.Equal(t, 0, status.PublicAvailable(models.TierGA))
	assert.True(t, status.IsPublicSoldOutTier(models.TierGA))
	assert.True(t, status.IsActualSoldOutTier(models.TierGA))

	// Test case: remaining+1 fails and leaves sold unchanged
	_, err = store.Decrement(context.Background(), "atlanta", models.TierGA, 2)
	assert.ErrorIs(t, err, db.ErrInsufficientInventory)

	status, err = store.GetStatus(context.Background(), "atlanta")
	require.NoError(t, err)
	assert.Equal(t, 35, status.SoldGA)
}

func TestDecrement_TiersAreIndependent(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedCity(t, store, "dallas", 35, 10, 40, 12)

	status, err := store.Decrement(context.Background(), "dallas", models.TierVIP, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, status.SoldVIP)
	assert.Equal(t, 0, status.SoldGA)

	// VIP is exhausted, GA remains sellable
	_, err = store.Decrement(context.Background(), "dallas", models.TierVIP, 1)
	assert.ErrorIs(t, err, db.ErrInsufficientInventory)

	_, err = store.Decrement(context.Background(), "dallas", models.TierGA, 5)
	assert.NoError(t, err)
}

func TestDecrement_UnknownCity(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := store.Decrement(context.Background(), "nowhere", models.TierGA, 1)
	assert.ErrorIs(t, err, db.ErrCityNotFound)
}

func TestDecrement_ConcurrentLastSlots(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedCity(t, store, "denver", 35, 10, 40, 12)

	// Sell down to 5 remaining GA seats
	_, err := store.Decrement(context.Background(), "denver", models.TierGA, 35)
	require.NoError(t, err)

	// 20 concurrent checkouts race for the last 5 seats
	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Decrement(context.Background(), "denver", models.TierGA, 1)
			if err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// The conditional update must admit exactly the remaining 5 sales
	assert.Equal(t, 5, successCount, "exactly the remaining seats should sell")

	status, err := store.GetStatus(context.Background(), "denver")
	require.NoError(t, err)
	assert.Equal(t, 40, status.SoldGA)
	assert.LessOrEqual(t, status.SoldGA, status.ActualGA, "sold must never exceed actual limit")
}

func TestExpand(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedCity(t, store, "atlanta", 35, 10, 35, 10)

	_, err := store.Decrement(context.Background(), "atlanta", models.TierGA, 35)
	require.NoError(t, err)

	// Over-capacity decrement fails before the expansion
	_, err = store.Decrement(context.Background(), "atlanta", models.TierGA, 5)
	assert.ErrorIs(t, err, db.ErrInsufficientInventory)

	status, err := store.Expand(context.Background(), "atlanta", models.TierGA, 10)
	require.NoError(t, err)
	assert.Equal(t, 45, status.ActualGA)
	assert.Equal(t, 35, status.PublicGA, "public limit must not change on expansion")
	assert.Equal(t, 35, status.SoldGA, "sold must not change on expansion")

	// The same decrement now succeeds
	_, err = store.Decrement(context.Background(), "atlanta", models.TierGA, 5)
	assert.NoError(t, err)
}

func TestExpandPublic_CappedAtActual(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedCity(t, store, "dallas", 35, 10, 40, 12)

	status, err := store.ExpandPublic(context.Background(), "dallas", models.TierGA, 5)
	require.NoError(t, err)
	assert.Equal(t, 40, status.PublicGA)

	// Raising public past actual is rejected
	_, err = store.ExpandPublic(context.Background(), "dallas", models.TierGA, 1)
	assert.Error(t, err)

	status, err = store.GetStatus(context.Background(), "dallas")
	require.NoError(t, err)
	assert.Equal(t, 40, status.PublicGA)
}

func TestReset(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedCity(t, store, "dallas", 35, 10, 40, 12)

	_, err := store.Decrement(context.Background(), "dallas", models.TierGA, 20)
	require.NoError(t, err)
	_, err = store.Decrement(context.Background(), "dallas", models.TierVIP, 5)
	require.NoError(t, err)

	status, err := store.Reset(context.Background(), "dallas")
	require.NoError(t, err)
	assert.Equal(t, 0, status.SoldGA)
	assert.Equal(t, 0, status.SoldVIP)
	assert.Equal(t, 40, status.ActualGA, "limits must survive a reset")
	assert.Equal(t, 35, status.PublicGA)
	assert.Equal(t, 40, status.ActualAvailable(models.TierGA))
}

func TestTransactions_NewestFirstAndFiltered(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	base := time.Now().Add(-time.Hour)
	for i, cityID := range []string{"atlanta", "dallas", "atlanta"} {
		err := store.InsertTransaction(context.Background(), models.InventoryTransaction{
			ID:        utils.GenerateTransactionID() + fmt.Sprintf("_%d", i),
			CityID:    cityID,
			Tier:      "ga",
			Quantity:  1,
			Operation: models.OperationDecrement,
			Severity:  models.SeverityInfo,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	all, err := store.GetTransactions(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt), "newest first")

	atlanta, err := store.GetTransactions(context.Background(), "atlanta")
	require.NoError(t, err)
	assert.Len(t, atlanta, 2)
	for _, txn := range atlanta {
		assert.Equal(t, "atlanta", txn.CityID)
	}
}

func TestExpansions_Filtered(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()

	for i, cityID := range []string{"atlanta", "dallas"} {
		err := store.InsertExpansion(context.Background(), models.InventoryExpansion{
			ID:              utils.GenerateExpansionID() + fmt.Sprintf("_%d", i),
			CityID:          cityID,
			Tier:            "ga",
			AdditionalSpots: 10,
			Reason:          "venue upgrade",
			AuthorizedBy:    "admin1",
			CreatedAt:       time.Now(),
		})
		require.NoError(t, err)
	}

	exps, err := store.GetExpansions(context.Background(), "dallas")
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, "dallas", exps[0].CityID)
	assert.Equal(t, "venue upgrade", exps[0].Reason)
}
