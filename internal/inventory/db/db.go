package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ws-registration/internal/models"
)

// ErrCityNotFound is returned when a city has no inventory row.
var ErrCityNotFound = errors.New("city not found")

// ErrInsufficientInventory is returned when a decrement would push sold past
// the actual limit. It is an expected business condition, not a fault.
var ErrInsufficientInventory = errors.New("insufficient inventory")

type DB struct {
	Bun *bun.DB
}

func soldColumn(tier models.Tier) string {
	if tier == models.TierVIP {
		return "sold_vip"
	}
	return "sold_ga"
}

func actualColumn(tier models.Tier) string {
	if tier == models.TierVIP {
		return "actual_vip"
	}
	return "actual_ga"
}

func publicColumn(tier models.Tier) string {
	if tier == models.TierVIP {
		return "public_vip"
	}
	return "public_ga"
}

// GetStatus returns the inventory row for one city.
func (d *DB) GetStatus(ctx context.Context, cityID string) (*models.InventoryStatus, error) {
	var status models.InventoryStatus
	err := d.Bun.NewSelect().
		Model(&status).
		Where("city_id = ?", cityID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// GetAllStatuses returns every city's inventory row, ordered by city id.
// Each row is a consistent snapshot on its own; cross-city consistency is not
// promised.
func (d *DB) GetAllStatuses(ctx context.Context) ([]models.InventoryStatus, error) {
	var statuses []models.InventoryStatus
	err := d.Bun.NewSelect().
		Model(&statuses).
		Order("city_id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

// SeedCity inserts an inventory row if the city does not exist yet. Existing
// rows are left untouched.
func (d *DB) SeedCity(ctx context.Context, status models.InventoryStatus) error {
	now := time.Now()
	status.CreatedAt = now
	status.UpdatedAt = now
	_, err := d.Bun.NewInsert().
		Model(&status).
		On("CONFLICT (city_id) DO NOTHING").
		Exec(ctx)
	return err
}

// Decrement records a sale by atomically bumping the sold counter, guarded by
// the actual limit in the same statement. The condition and the increment run
// as one UPDATE so two checkouts racing for the last slot can never both
// succeed; a separate read-then-write here would oversell.
func (d *DB) Decrement(ctx context.Context, cityID string, tier models.Tier, quantity int) (*models.InventoryStatus, error) {
	sold := soldColumn(tier)
	actual := actualColumn(tier)

	res, err := d.Bun.NewUpdate().
		Model((*models.InventoryStatus)(nil)).
		Set(fmt.Sprintf("%s = %s + ?", sold, sold), quantity).
		Set("updated_at = ?", time.Now()).
		Where("city_id = ?", cityID).
		Where(fmt.Sprintf("%s + ? <= %s", sold, actual), quantity).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Distinguish "city missing" from "not enough room left".
		if _, err := d.GetStatus(ctx, cityID); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientInventory
	}

	return d.GetStatus(ctx, cityID)
}

// Expand raises the actual limit for a tier. Public limits are untouched;
// raising them is a separate explicit action.
func (d *DB) Expand(ctx context.Context, cityID string, tier models.Tier, additionalSpots int) (*models.InventoryStatus, error) {
	actual := actualColumn(tier)

	res, err := d.Bun.NewUpdate().
		Model((*models.InventoryStatus)(nil)).
		Set(fmt.Sprintf("%s = %s + ?", actual, actual), additionalSpots).
		Set("updated_at = ?", time.Now()).
		Where("city_id = ?", cityID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrCityNotFound
	}

	return d.GetStatus(ctx, cityID)
}

// ExpandPublic raises the public limit for a tier, capped at the actual limit
// so the storefront never advertises more than can really be sold.
func (d *DB) ExpandPublic(ctx context.Context, cityID string, tier models.Tier, additionalSpots int) (*models.InventoryStatus, error) {
	public := publicColumn(tier)
	actual := actualColumn(tier)

	res, err := d.Bun.NewUpdate().
		Model((*models.InventoryStatus)(nil)).
		Set(fmt.Sprintf("%s = %s + ?", public, public), additionalSpots).
		Set("updated_at = ?", time.Now()).
		Where("city_id = ?", cityID).
		Where(fmt.Sprintf("%s + ? <= %s", public, actual), additionalSpots).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if _, err := d.GetStatus(ctx, cityID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("public limit would exceed actual limit for %s/%s", cityID, tier)
	}

	return d.GetStatus(ctx, cityID)
}

// Reset zeroes both sold counters for a city. Limits are untouched.
func (d *DB) Reset(ctx context.Context, cityID string) (*models.InventoryStatus, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.InventoryStatus)(nil)).
		Set("sold_ga = 0").
		Set("sold_vip = 0").
		Set("updated_at = ?", time.Now()).
		Where("city_id = ?", cityID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrCityNotFound
	}

	return d.GetStatus(ctx, cityID)
}

// InsertTransaction appends an audit transaction. Transactions are immutable
// once written.
func (d *DB) InsertTransaction(ctx context.Context, txn models.InventoryTransaction) error {
	_, err := d.Bun.NewInsert().Model(&txn).Exec(ctx)
	return err
}

// InsertExpansion appends an expansion audit record.
func (d *DB) InsertExpansion(ctx context.Context, exp models.InventoryExpansion) error {
	_, err := d.Bun.NewInsert().Model(&exp).Exec(ctx)
	return err
}

// GetTransactions returns audit transactions, newest first, optionally
// filtered by city.
func (d *DB) GetTransactions(ctx context.Context, cityID string) ([]models.InventoryTransaction, error) {
	var txns []models.InventoryTransaction
	q := d.Bun.NewSelect().
		Model(&txns).
		Order("created_at DESC")
	if cityID != "" {
		q = q.Where("city_id = ?", cityID)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return txns, nil
}

// GetExpansions returns expansion records, newest first, optionally filtered
// by city.
func (d *DB) GetExpansions(ctx context.Context, cityID string) ([]models.InventoryExpansion, error) {
	var exps []models.InventoryExpansion
	q := d.Bun.NewSelect().
		Model(&exps).
		Order("created_at DESC")
	if cityID != "" {
		q = q.Where("city_id = ?", cityID)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return exps, nil
}
