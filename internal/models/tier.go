package models

import (
	"fmt"
	"strings"
)

// Tier identifies a ticket tier within a city.
type Tier string

const (
	TierGA  Tier = "ga"
	TierVIP Tier = "vip"
)

// Tiers lists every known tier, in display order.
var Tiers = []Tier{TierGA, TierVIP}

// ParseTier validates and normalizes a tier string (case-insensitive).
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierGA:
		return TierGA, nil
	case TierVIP:
		return TierVIP, nil
	default:
		return "", fmt.Errorf("unknown tier: %q", s)
	}
}

func (t Tier) String() string {
	return string(t)
}
