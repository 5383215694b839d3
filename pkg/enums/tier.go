package enums

import "fmt"

// LoyaltyTier is derived from lifetime spend alone.
type LoyaltyTier string

const (
	TierBronze LoyaltyTier = "bronze"
	TierSilver LoyaltyTier = "silver"
	TierGold   LoyaltyTier = "gold"
)

var validLoyaltyTiers = []LoyaltyTier{TierBronze, TierSilver, TierGold}

// String implements fmt.Stringer.
func (t LoyaltyTier) String() string {
	return string(t)
}

// IsValid reports whether the value is a known LoyaltyTier.
func (t LoyaltyTier) IsValid() bool {
	for _, candidate := range validLoyaltyTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// Rank orders tiers so bronze < silver < gold.
func (t LoyaltyTier) Rank() int {
	for i, candidate := range validLoyaltyTiers {
		if candidate == t {
			return i
		}
	}
	return -1
}

// ParseLoyaltyTier converts raw input into a LoyaltyTier.
func ParseLoyaltyTier(value string) (LoyaltyTier, error) {
	for _, candidate := range validLoyaltyTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loyalty tier %q", value)
}

// PriceRange is the price band a customer usually shops in.
type PriceRange string

const (
	PriceRangeLow  PriceRange = "low"
	PriceRangeMid  PriceRange = "mid"
	PriceRangeHigh PriceRange = "high"
)

var validPriceRanges = []PriceRange{PriceRangeLow, PriceRangeMid, PriceRangeHigh}

// IsValid reports whether the value is a known PriceRange.
func (p PriceRange) IsValid() bool {
	for _, candidate := range validPriceRanges {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriceRange converts raw input into a PriceRange.
func ParsePriceRange(value string) (PriceRange, error) {
	for _, candidate := range validPriceRanges {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price range %q", value)
}
