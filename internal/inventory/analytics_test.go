package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ws-registration/internal/inventory"
	"ws-registration/internal/models"
)

func status(cityID string, soldGA, soldVIP int) models.InventoryStatus {
	return models.InventoryStatus{
		CityID:   cityID,
		PublicGA: 35, PublicVIP: 10,
		ActualGA: 40, ActualVIP: 12,
		SoldGA: soldGA, SoldVIP: soldVIP,
	}
}

func TestSummarize_Empty(t *testing.T) {
	summary := inventory.Summarize(nil)
	assert.Equal(t, 0, summary.CityCount)
	assert.Equal(t, 0.0, summary.SellThroughRate)
	assert.Empty(t, summary.Cities)
}

func TestSummarize_Totals(t *testing.T) {
	statuses := []models.InventoryStatus{
		status("atlanta", 10, 5),
		status("dallas", 20, 10),
	}

	summary := inventory.Summarize(statuses)

	assert.Equal(t, 2, summary.CityCount)
	assert.Equal(t, 90, summary.TotalPublicCapacity)
	assert.Equal(t, 104, summary.TotalActualCapacity)
	assert.Equal(t, 45, summary.TotalSold)
	assert.InDelta(t, 0.5, summary.SellThroughRate, 0.0001)

	require.Len(t, summary.Cities, 2)
	atlanta := summary.Cities[0]
	assert.Equal(t, "atlanta", atlanta.CityID)
	assert.Equal(t, 30, atlanta.PublicRemaining)
	assert.Equal(t, 37, atlanta.ActualRemaining)
	assert.InDelta(t, 15.0/52.0, atlanta.FillRate, 0.0001)
}

func TestSummarize_AlertLevels(t *testing.T) {
	cases := []struct {
		name    string
		soldGA  int
		soldVIP int
		want    string
	}{
		{"plenty left", 0, 0, inventory.AlertNone},
		{"ga low", 30, 0, inventory.AlertLow},
		{"vip low", 0, 7, inventory.AlertLow},
		{"ga critical", 33, 0, inventory.AlertCritical},
		{"vip critical", 0, 9, inventory.AlertCritical},
		{"ga exhausted but vip open", 35, 0, inventory.AlertCritical},
		{"both exhausted", 35, 10, inventory.AlertSoldOut},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary := inventory.Summarize([]models.InventoryStatus{status("atlanta", tc.soldGA, tc.soldVIP)})
			require.Len(t, summary.Cities, 1)
			assert.Equal(t, tc.want, summary.Cities[0].Alert)
		})
	}
}

func TestSummarize_SoldBeyondPublicLimit(t *testing.T) {
	// Sold runs against actual limits, so it can pass the public limit once
	// the operator reserve is being drawn down. Public remaining floors at 0.
	st := status("atlanta", 38, 11)
	summary := inventory.Summarize([]models.InventoryStatus{st})

	require.Len(t, summary.Cities, 1)
	city := summary.Cities[0]
	assert.Equal(t, 0, city.PublicRemaining)
	assert.Equal(t, 3, city.ActualRemaining)
	assert.Equal(t, inventory.AlertSoldOut, city.Alert)
}
