package checkout

import (
	"fmt"

	"ws-registration/internal/config"
	"ws-registration/internal/models"
)

// Quote is the price breakdown for a checkout, all amounts in cents.
type Quote struct {
	OriginalAmountCents int64 `json:"original_amount_cents"`
	DiscountAmountCents int64 `json:"discount_amount_cents"`
	FinalAmountCents    int64 `json:"final_amount_cents"`
	DiscountPct         int   `json:"discount_pct"`
}

// Pricer computes quotes from the configured tier prices and the
// tier-specific member discount percentages.
type Pricer struct {
	cfg config.PricingConfig
}

func NewPricer(cfg config.PricingConfig) *Pricer {
	return &Pricer{cfg: cfg}
}

func (p *Pricer) unitPrice(tier models.Tier) int64 {
	if tier == models.TierVIP {
		return p.cfg.VIPPriceCents
	}
	return p.cfg.GAPriceCents
}

func (p *Pricer) discountPct(tier models.Tier) int {
	if tier == models.TierVIP {
		return p.cfg.MemberDiscountVIPPct
	}
	return p.cfg.MemberDiscountGAPct
}

// PriceOrder computes the quote for quantity seats of a tier. The member
// discount applies to the whole order when the buyer is an eligible member;
// rounding goes in the customer's favor (discount rounds up).
func (p *Pricer) PriceOrder(tier models.Tier, quantity int, memberDiscount bool) (*Quote, error) {
	if _, err := models.ParseTier(string(tier)); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	original := p.unitPrice(tier) * int64(quantity)
	quote := &Quote{
		OriginalAmountCents: original,
		FinalAmountCents:    original,
	}

	if memberDiscount {
		pct := p.discountPct(tier)
		quote.DiscountPct = pct
		quote.DiscountAmountCents = (original*int64(pct) + 99) / 100
		if quote.DiscountAmountCents > original {
			quote.DiscountAmountCents = original
		}
		quote.FinalAmountCents = original - quote.DiscountAmountCents
	}

	return quote, nil
}
