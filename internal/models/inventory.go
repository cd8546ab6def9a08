package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Transaction operations recorded in the inventory audit log.
const (
	OperationDecrement = "decrement"
	OperationExpand    = "expand"
	OperationReset     = "reset"
)

// Transaction severities. Resets are destructive overrides and logged as critical.
const (
	SeverityInfo     = "info"
	SeverityCritical = "critical"
)

// InventoryStatus is the per-city capacity row. Public limits are what the
// storefront advertises; actual limits are the true sellable ceiling and may
// exceed public limits to hold an operator reserve. sold_* only ever grows,
// except through an explicit admin reset.
type InventoryStatus struct {
	bun.BaseModel `bun:"table:inventory_statuses"`

	CityID    string    `bun:"city_id,pk" json:"city_id"`
	PublicGA  int       `bun:"public_ga" json:"public_ga"`
	PublicVIP int       `bun:"public_vip" json:"public_vip"`
	ActualGA  int       `bun:"actual_ga" json:"actual_ga"`
	ActualVIP int       `bun:"actual_vip" json:"actual_vip"`
	SoldGA    int       `bun:"sold_ga" json:"sold_ga"`
	SoldVIP   int       `bun:"sold_vip" json:"sold_vip"`
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at" json:"updated_at"`
}

// PublicLimit returns the advertised capacity for a tier.
func (s *InventoryStatus) PublicLimit(t Tier) int {
	if t == TierVIP {
		return s.PublicVIP
	}
	return s.PublicGA
}

// ActualLimit returns the true sellable capacity for a tier.
func (s *InventoryStatus) ActualLimit(t Tier) int {
	if t == TierVIP {
		return s.ActualVIP
	}
	return s.ActualGA
}

// Sold returns the sold count for a tier.
func (s *InventoryStatus) Sold(t Tier) int {
	if t == TierVIP {
		return s.SoldVIP
	}
	return s.SoldGA
}

// PublicAvailable returns the advertised remaining capacity, floored at zero.
// Sold counts run against actual limits, so they can legitimately exceed the
// public limit when the operator reserve is being drawn down.
func (s *InventoryStatus) PublicAvailable(t Tier) int {
	return nonNegative(s.PublicLimit(t) - s.Sold(t))
}

// ActualAvailable returns the real remaining capacity, floored at zero.
func (s *InventoryStatus) ActualAvailable(t Tier) int {
	return nonNegative(s.ActualLimit(t) - s.Sold(t))
}

// IsPublicSoldOutTier reports whether the storefront should show a tier as sold out.
func (s *InventoryStatus) IsPublicSoldOutTier(t Tier) bool {
	return s.PublicAvailable(t) == 0
}

// IsPublicSoldOut reports whether every tier is publicly sold out.
func (s *InventoryStatus) IsPublicSoldOut() bool {
	return s.PublicAvailable(TierGA) == 0 && s.PublicAvailable(TierVIP) == 0
}

// IsActualSoldOutTier reports whether a tier has no real capacity left.
func (s *InventoryStatus) IsActualSoldOutTier(t Tier) bool {
	return s.ActualAvailable(t) == 0
}

// IsActualSoldOut reports whether the city has no real capacity left at all.
func (s *InventoryStatus) IsActualSoldOut() bool {
	return s.ActualAvailable(TierGA) == 0 && s.ActualAvailable(TierVIP) == 0
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// TransactionMetadata carries the provenance of an inventory mutation.
type TransactionMetadata struct {
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
	AdminUserID     string `json:"admin_user_id,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// InventoryTransaction is the append-only audit record written for every
// inventory mutation. It is never read back to reconstruct state.
type InventoryTransaction struct {
	bun.BaseModel `bun:"table:inventory_transactions"`

	ID              string    `bun:"id,pk" json:"id"`
	CityID          string    `bun:"city_id" json:"city_id"`
	Tier            string    `bun:"tier" json:"tier"`
	Quantity        int       `bun:"quantity" json:"quantity"`
	Operation       string    `bun:"operation" json:"operation"`
	Severity        string    `bun:"severity" json:"severity"`
	PaymentIntentID string    `bun:"payment_intent_id,nullzero" json:"payment_intent_id,omitempty"`
	SessionID       string    `bun:"session_id,nullzero" json:"session_id,omitempty"`
	AdminUserID     string    `bun:"admin_user_id,nullzero" json:"admin_user_id,omitempty"`
	Reason          string    `bun:"reason,nullzero" json:"reason,omitempty"`
	CreatedAt       time.Time `bun:"created_at" json:"created_at"`
}

// InventoryExpansion records why actual capacity grew for a city/tier.
type InventoryExpansion struct {
	bun.BaseModel `bun:"table:inventory_expansions"`

	ID              string    `bun:"id,pk" json:"id"`
	CityID          string    `bun:"city_id" json:"city_id"`
	Tier            string    `bun:"tier" json:"tier"`
	AdditionalSpots int       `bun:"additional_spots" json:"additional_spots"`
	Reason          string    `bun:"reason" json:"reason"`
	AuthorizedBy    string    `bun:"authorized_by" json:"authorized_by"`
	CreatedAt       time.Time `bun:"created_at" json:"created_at"`
}
