package crm

import (
	"fmt"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
)

const (
	winBackMinAtRisk  = 3
	nurtureMinNewJoin = 2
)

// Suggest proposes campaign audiences from org stats. Suggestions are returned
// in a fixed order: win-back, VIP appreciation, new customer nurture.
func Suggest(stats Stats) []SegmentSuggestion {
	suggestions := []SegmentSuggestion{}

	if stats.AtRiskCount > winBackMinAtRisk {
		suggestions = append(suggestions, SegmentSuggestion{
			Name:           "Win-Back Campaign Targets",
			Description:    "Customers whose ordering has slowed or stopped. Reach out with a personalized offer before they churn.",
			Segments:       []enums.CustomerSegment{enums.SegmentAtRisk, enums.SegmentSlipping},
			EstimatedCount: stats.AtRiskCount,
			Reasoning:      fmt.Sprintf("%d customers are at risk or slipping and have not ordered recently.", stats.AtRiskCount),
		})
	}

	if stats.VIPCount > 0 {
		suggestions = append(suggestions, SegmentSuggestion{
			Name:           "VIP Appreciation",
			Description:    "Your highest value repeat customers. Reward them with early access, exclusive drops or bonus points.",
			Segments:       []enums.CustomerSegment{enums.SegmentVIP},
			EstimatedCount: stats.VIPCount,
			Reasoning:      fmt.Sprintf("%d VIP customers account for an outsized share of revenue and respond well to recognition.", stats.VIPCount),
		})
	}

	if stats.NewThisMonth > nurtureMinNewJoin {
		suggestions = append(suggestions, SegmentSuggestion{
			Name:           "New Customer Nurture",
			Description:    "Customers who joined in the last 30 days. Introduce the loyalty program and guide them to a second purchase.",
			Segments:       []enums.CustomerSegment{enums.SegmentNew},
			EstimatedCount: stats.NewThisMonth,
			Reasoning:      fmt.Sprintf("%d customers joined this month and are most receptive to onboarding messages.", stats.NewThisMonth),
		})
	}

	return suggestions
}
