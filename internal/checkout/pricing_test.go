package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ws-registration/internal/config"
	"ws-registration/internal/models"
)

func testPricer() *Pricer {
	return NewPricer(config.PricingConfig{
		GAPriceCents:         29900,
		VIPPriceCents:        79900,
		MemberDiscountGAPct:  20,
		MemberDiscountVIPPct: 10,
	})
}

func TestPriceOrder_NoDiscount(t *testing.T) {
	p := testPricer()

	quote, err := p.PriceOrder(models.TierGA, 2, false)
	require.NoError(t, err)
	assert.Equal(t, int64(59800), quote.OriginalAmountCents)
	assert.Equal(t, int64(0), quote.DiscountAmountCents)
	assert.Equal(t, int64(59800), quote.FinalAmountCents)
	assert.Equal(t, 0, quote.DiscountPct)
}

func TestPriceOrder_MemberDiscount(t *testing.T) {
	p := testPricer()

	quote, err := p.PriceOrder(models.TierGA, 1, true)
	require.NoError(t, err)
	assert.Equal(t, int64(29900), quote.OriginalAmountCents)
	assert.Equal(t, 20, quote.DiscountPct)
	assert.Equal(t, int64(5980), quote.DiscountAmountCents)
	assert.Equal(t, int64(23920), quote.FinalAmountCents)

	quote, err = p.PriceOrder(models.TierVIP, 1, true)
	require.NoError(t, err)
	assert.Equal(t, int64(79900), quote.OriginalAmountCents)
	assert.Equal(t, 10, quote.DiscountPct)
	assert.Equal(t, int64(7990), quote.DiscountAmountCents)
	assert.Equal(t, int64(71910), quote.FinalAmountCents)
}

func TestPriceOrder_DiscountRoundsUp(t *testing.T) {
	p := NewPricer(config.PricingConfig{
		GAPriceCents:        101,
		MemberDiscountGAPct: 10,
	})

	// 10% of 101 is 10.1 cents; the customer gets 11 off.
	quote, err := p.PriceOrder(models.TierGA, 1, true)
	require.NoError(t, err)
	assert.Equal(t, int64(11), quote.DiscountAmountCents)
	assert.Equal(t, int64(90), quote.FinalAmountCents)
}

func TestPriceOrder_Validation(t *testing.T) {
	p := testPricer()

	_, err := p.PriceOrder(models.Tier("platinum"), 1, false)
	assert.Error(t, err)

	_, err = p.PriceOrder(models.TierGA, 0, false)
	assert.Error(t, err)

	_, err = p.PriceOrder(models.TierGA, -1, false)
	assert.Error(t, err)
}
