package checkout

import (
	"context"
	"errors"
	"fmt"

	"ws-registration/internal/discount"
	"ws-registration/internal/inventory"
	"ws-registration/internal/logger"
	"ws-registration/internal/models"
)

// Outcome values for finalization. Sold-out and already-used are normal
// business outcomes the storefront branches on, not system errors.
const (
	OutcomeCompleted           = "completed"
	OutcomeSoldOut             = "sold_out"
	OutcomeDiscountAlreadyUsed = "discount_already_used"
	OutcomeDiscountContended   = "discount_contended"
)

type InventoryLedger interface {
	CheckInventoryStatus(ctx context.Context, cityID string, tier models.Tier, requestedQuantity int) (*inventory.CheckResult, error)
	DecrementInventory(ctx context.Context, cityID string, tier models.Tier, quantity int, meta models.TransactionMetadata) (*models.InventoryStatus, error)
}

type DiscountLedger interface {
	ValidateMemberDiscountEligibility(ctx context.Context, email string, ticketType models.Tier) (*discount.Eligibility, error)
	RecordMemberDiscountUsage(ctx context.Context, req discount.RecordRequest) (*models.MemberDiscountUsage, error)
}

type ClaimGuard interface {
	ClaimEmail(ctx context.Context, email, sessionID string) (bool, error)
	ReleaseClaim(ctx context.Context, email, sessionID string) error
}

// Service orchestrates the checkout flow around the two ledgers. Payment
// capture happens outside; Finalize runs only after the caller has a
// confirmed payment intent.
type Service struct {
	Inventory InventoryLedger
	Discounts DiscountLedger
	Claims    ClaimGuard
	Pricer    *Pricer
	Logger    *logger.Logger
}

func NewService(inv InventoryLedger, disc DiscountLedger, claims ClaimGuard, pricer *Pricer, log *logger.Logger) *Service {
	return &Service{Inventory: inv, Discounts: disc, Claims: claims, Pricer: pricer, Logger: log}
}

type QuoteRequest struct {
	Email    string      `json:"email"`
	IsMember bool        `json:"is_member"`
	CityID   string      `json:"city_id"`
	Tier     models.Tier `json:"tier"`
	Quantity int         `json:"quantity"`
}

type QuoteResult struct {
	Available        bool   `json:"available"`
	Remaining        int    `json:"remaining"`
	DiscountEligible bool   `json:"discount_eligible"`
	DiscountReason   string `json:"discount_reason,omitempty"`
	Quote            *Quote `json:"quote,omitempty"`
}

// Quote runs the pre-payment validation: discount eligibility (members only)
// then inventory availability, then the price breakdown the storefront shows.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	result := &QuoteResult{}

	applyDiscount := false
	if req.IsMember {
		elig, err := s.Discounts.ValidateMemberDiscountEligibility(ctx, req.Email, req.Tier)
		if err != nil {
			return nil, err
		}
		result.DiscountEligible = elig.Eligible
		result.DiscountReason = elig.Reason
		applyDiscount = elig.Eligible
	}

	check, err := s.Inventory.CheckInventoryStatus(ctx, req.CityID, req.Tier, req.Quantity)
	if err != nil {
		return nil, err
	}
	result.Available = check.Available
	result.Remaining = check.Remaining
	if !check.Available {
		return result, nil
	}

	quote, err := s.Pricer.PriceOrder(req.Tier, req.Quantity, applyDiscount)
	if err != nil {
		return nil, err
	}
	result.Quote = quote
	return result, nil
}

type FinalizeRequest struct {
	SessionID       string      `json:"session_id"`
	PaymentIntentID string      `json:"payment_intent_id"`
	Email           string      `json:"email"`
	IsMember        bool        `json:"is_member"`
	CustomerID      string      `json:"customer_id,omitempty"`
	CityID          string      `json:"city_id"`
	Tier            models.Tier `json:"tier"`
	Quantity        int         `json:"quantity"`
	DiscountApplied bool        `json:"discount_applied"`
}

type FinalizeResult struct {
	Outcome     string                      `json:"outcome"`
	Status      *models.InventoryStatus     `json:"inventory_status,omitempty"`
	UsageRecord *models.MemberDiscountUsage `json:"usage_record,omitempty"`
}

// Finalize commits a confirmed sale: decrement inventory, then, if a member
// discount was applied, record the usage under a short Redis claim. A
// timed-out store write must be treated by callers as unknown outcome and
// verified by re-reading state, never blindly retried.
func (s *Service) Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeResult, error) {
	if req.SessionID == "" || req.PaymentIntentID == "" {
		return nil, fmt.Errorf("session id and payment intent id are required")
	}

	email := models.NormalizeEmail(req.Email)

	if req.DiscountApplied {
		if !req.IsMember {
			return nil, fmt.Errorf("discount applied on a non-member checkout")
		}
		// The claim keeps a second in-flight checkout for the same member from
		// interleaving between our decrement and the usage insert. The insert
		// itself is still the real guarantee.
		ok, err := s.Claims.ClaimEmail(ctx, email, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("discount claim error: %w", err)
		}
		if !ok {
			s.Logger.LogCheckout("FINALIZE_BLOCKED", req.SessionID, "discount claim held by another session for "+email)
			return &FinalizeResult{Outcome: OutcomeDiscountContended}, nil
		}
		defer func() {
			if err := s.Claims.ReleaseClaim(context.Background(), email, req.SessionID); err != nil {
				s.Logger.Error("CHECKOUT", fmt.Sprintf("failed to release discount claim for %s: %v", email, err))
			}
		}()
	}

	status, err := s.Inventory.DecrementInventory(ctx, req.CityID, req.Tier, req.Quantity, models.TransactionMetadata{
		PaymentIntentID: req.PaymentIntentID,
		SessionID:       req.SessionID,
	})
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientInventory) {
			s.Logger.LogCheckout("FINALIZE_SOLD_OUT", req.SessionID, fmt.Sprintf("%s/%s x%d", req.CityID, req.Tier, req.Quantity))
			return &FinalizeResult{Outcome: OutcomeSoldOut}, nil
		}
		return nil, err
	}

	result := &FinalizeResult{Outcome: OutcomeCompleted, Status: status}

	if req.DiscountApplied {
		quote, err := s.Pricer.PriceOrder(req.Tier, req.Quantity, true)
		if err != nil {
			return nil, err
		}
		usage, err := s.Discounts.RecordMemberDiscountUsage(ctx, discount.RecordRequest{
			Email:               email,
			CustomerID:          req.CustomerID,
			SessionID:           req.SessionID,
			PaymentIntentID:     req.PaymentIntentID,
			CityID:              req.CityID,
			TicketType:          req.Tier,
			Quantity:            req.Quantity,
			DiscountAmountCents: quote.DiscountAmountCents,
			OriginalAmountCents: quote.OriginalAmountCents,
			FinalAmountCents:    quote.FinalAmountCents,
		})
		if err != nil {
			if errors.Is(err, discount.ErrAlreadyUsed) {
				// The sale is committed but the discount was consumed by an
				// earlier checkout. Flag for manual review rather than
				// unwinding the inventory decrement.
				s.Logger.Error("CHECKOUT", fmt.Sprintf("discount already used for %s after sale %s; needs review", email, req.PaymentIntentID))
				result.Outcome = OutcomeDiscountAlreadyUsed
				return result, nil
			}
			return nil, err
		}
		result.UsageRecord = usage
	}

	s.Logger.LogCheckout("FINALIZE", req.SessionID, fmt.Sprintf("%s/%s x%d payment=%s", req.CityID, req.Tier, req.Quantity, req.PaymentIntentID))
	return result, nil
}
