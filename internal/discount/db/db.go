package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ws-registration/internal/models"
)

// ErrAlreadyUsed is returned when an insert finds an existing usage row for
// the same normalized email.
var ErrAlreadyUsed = errors.New("member discount already used")

// ErrUsageNotFound is returned when a reset targets an email with no usage row.
var ErrUsageNotFound = errors.New("usage record not found")

type DB struct {
	Bun *bun.DB
}

// GetUsageByEmail looks up a usage record. The caller is expected to have
// normalized the email already.
func (d *DB) GetUsageByEmail(ctx context.Context, email string) (*models.MemberDiscountUsage, error) {
	var usage models.MemberDiscountUsage
	err := d.Bun.NewSelect().
		Model(&usage).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// InsertUsageIfAbsent is the one concurrency-critical write of this ledger.
// WARNING: this must stay a single conditional insert. A get-then-set here
// would let two concurrent checkouts for the same email both record a usage
// and grant the discount twice. The email primary key plus ON CONFLICT DO
// NOTHING makes the check-and-insert one atomic statement; zero affected rows
// means someone else got there first.
func (d *DB) InsertUsageIfAbsent(ctx context.Context, usage models.MemberDiscountUsage) error {
	res, err := d.Bun.NewInsert().
		Model(&usage).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAlreadyUsed
	}
	return nil
}

// DeleteUsage removes a usage record as part of an admin reset.
func (d *DB) DeleteUsage(ctx context.Context, email string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.MemberDiscountUsage)(nil)).
		Where("email = ?", email).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUsageNotFound
	}
	return nil
}

// InsertReset appends the audit row for an admin discount reset.
func (d *DB) InsertReset(ctx context.Context, reset models.MemberDiscountReset) error {
	_, err := d.Bun.NewInsert().Model(&reset).Exec(ctx)
	return err
}

// UsageFilters narrows GetUsageStats. Zero values mean "no filter".
type UsageFilters struct {
	CityID string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// UsageStats is a reporting projection over stored usage records.
type UsageStats struct {
	Records            []models.MemberDiscountUsage `json:"records"`
	TotalCount         int                          `json:"total_count"`
	TotalDiscountGiven int64                        `json:"total_discount_given_cents"`
}

// GetUsageStats returns usage records newest-first with pagination, plus the
// unpaginated total count and discount sum for the same filters.
func (d *DB) GetUsageStats(ctx context.Context, filters UsageFilters) (*UsageStats, error) {
	applyFilters := func(q *bun.SelectQuery) *bun.SelectQuery {
		if filters.CityID != "" {
			q = q.Where("city_id = ?", filters.CityID)
		}
		if !filters.From.IsZero() {
			q = q.Where("used_at >= ?", filters.From)
		}
		if !filters.To.IsZero() {
			q = q.Where("used_at <= ?", filters.To)
		}
		return q
	}

	var records []models.MemberDiscountUsage
	q := applyFilters(d.Bun.NewSelect().Model(&records)).
		Order("used_at DESC")
	if filters.Limit > 0 {
		q = q.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		q = q.Offset(filters.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	totalCount, err := applyFilters(d.Bun.NewSelect().Model((*models.MemberDiscountUsage)(nil))).
		Count(ctx)
	if err != nil {
		return nil, err
	}

	var totalDiscount int64
	err = applyFilters(d.Bun.NewSelect().Model((*models.MemberDiscountUsage)(nil))).
		ColumnExpr("COALESCE(SUM(discount_amount_cents), 0)").
		Scan(ctx, &totalDiscount)
	if err != nil {
		return nil, err
	}

	return &UsageStats{
		Records:            records,
		TotalCount:         totalCount,
		TotalDiscountGiven: totalDiscount,
	}, nil
}
