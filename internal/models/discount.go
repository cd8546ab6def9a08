package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// NormalizeEmail is the canonical key transformation for the discount ledger.
// Both the check and the record path must go through it so that
// "Foo@Bar.com " and "foo@bar.com" land on the same row.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemberDiscountUsage marks that an email has consumed its one-time member
// discount. The email column is the primary key, so the database enforces the
// at-most-one-record invariant; inserts go through ON CONFLICT DO NOTHING.
type MemberDiscountUsage struct {
	bun.BaseModel `bun:"table:member_discount_usages"`

	Email               string    `bun:"email,pk" json:"email"`
	ID                  string    `bun:"id" json:"id"`
	CustomerID          string    `bun:"customer_id,nullzero" json:"customer_id,omitempty"`
	SessionID           string    `bun:"session_id" json:"session_id"`
	PaymentIntentID     string    `bun:"payment_intent_id,nullzero" json:"payment_intent_id,omitempty"`
	CityID              string    `bun:"city_id" json:"city_id"`
	TicketType          string    `bun:"ticket_type" json:"ticket_type"`
	Quantity            int       `bun:"quantity" json:"quantity"`
	DiscountAmountCents int64     `bun:"discount_amount_cents" json:"discount_amount_cents"`
	OriginalAmountCents int64     `bun:"original_amount_cents" json:"original_amount_cents"`
	FinalAmountCents    int64     `bun:"final_amount_cents" json:"final_amount_cents"`
	UsedAt              time.Time `bun:"used_at" json:"used_at"`
}

// MemberDiscountReset is the audit row written when an admin deletes a usage
// record so a member can use the discount again.
type MemberDiscountReset struct {
	bun.BaseModel `bun:"table:member_discount_resets"`

	ID           string    `bun:"id,pk" json:"id"`
	Email        string    `bun:"email" json:"email"`
	Reason       string    `bun:"reason" json:"reason"`
	AuthorizedBy string    `bun:"authorized_by" json:"authorized_by"`
	ResetAt      time.Time `bun:"reset_at" json:"reset_at"`
}
