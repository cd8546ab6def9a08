package inventory

import "ws-registration/internal/models"

// Alert buckets for the admin dashboard, derived from public availability.
const (
	AlertSoldOut  = "sold_out"
	AlertCritical = "critical"
	AlertLow      = "low"
	AlertNone     = "none"
)

// Remaining-seat thresholds for the alert buckets.
const (
	criticalGAThreshold  = 2
	criticalVIPThreshold = 1
	lowGAThreshold       = 5
	lowVIPThreshold      = 3
)

// CityAnalytics is the derived per-city view.
type CityAnalytics struct {
	CityID          string  `json:"city_id"`
	SoldGA          int     `json:"sold_ga"`
	SoldVIP         int     `json:"sold_vip"`
	PublicRemaining int     `json:"public_remaining"`
	ActualRemaining int     `json:"actual_remaining"`
	FillRate        float64 `json:"fill_rate"`
	Alert           string  `json:"alert"`
}

// Summary aggregates the whole tour. Everything here is a pure projection of
// the status snapshot; no independent state.
type Summary struct {
	CityCount           int             `json:"city_count"`
	TotalPublicCapacity int             `json:"total_public_capacity"`
	TotalActualCapacity int             `json:"total_actual_capacity"`
	TotalSold           int             `json:"total_sold"`
	SellThroughRate     float64         `json:"sell_through_rate"`
	Cities              []CityAnalytics `json:"cities"`
}

// Summarize computes tour-wide analytics from a status snapshot.
func Summarize(statuses []models.InventoryStatus) Summary {
	summary := Summary{
		CityCount: len(statuses),
		Cities:    make([]CityAnalytics, 0, len(statuses)),
	}

	for i := range statuses {
		st := &statuses[i]
		summary.TotalPublicCapacity += st.PublicGA + st.PublicVIP
		summary.TotalActualCapacity += st.ActualGA + st.ActualVIP
		summary.TotalSold += st.SoldGA + st.SoldVIP
		summary.Cities = append(summary.Cities, analyzeCity(st))
	}

	if summary.TotalPublicCapacity > 0 {
		summary.SellThroughRate = float64(summary.TotalSold) / float64(summary.TotalPublicCapacity)
	}

	return summary
}

func analyzeCity(st *models.InventoryStatus) CityAnalytics {
	actualCapacity := st.ActualGA + st.ActualVIP
	sold := st.SoldGA + st.SoldVIP

	city := CityAnalytics{
		CityID:          st.CityID,
		SoldGA:          st.SoldGA,
		SoldVIP:         st.SoldVIP,
		PublicRemaining: st.PublicAvailable(models.TierGA) + st.PublicAvailable(models.TierVIP),
		ActualRemaining: st.ActualAvailable(models.TierGA) + st.ActualAvailable(models.TierVIP),
		Alert:           alertLevel(st),
	}
	if actualCapacity > 0 {
		city.FillRate = float64(sold) / float64(actualCapacity)
	}
	return city
}

func alertLevel(st *models.InventoryStatus) string {
	gaLeft := st.PublicAvailable(models.TierGA)
	vipLeft := st.PublicAvailable(models.TierVIP)

	switch {
	case gaLeft == 0 && vipLeft == 0:
		return AlertSoldOut
	case gaLeft <= criticalGAThreshold || vipLeft <= criticalVIPThreshold:
		return AlertCritical
	case gaLeft <= lowGAThreshold || vipLeft <= lowVIPThreshold:
		return AlertLow
	default:
		return AlertNone
	}
}
