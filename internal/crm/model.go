package crm

import (
	"time"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/shopspring/decimal"
)

// OrderRecord is the slice of an order the CRM pipeline reads.
type OrderRecord struct {
	ID            string
	OrgID         string
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	TotalAmount   decimal.Decimal
	CreatedAt     *time.Time
}

// CustomerRecord is a persisted CRM entry, typically created by staff or an import.
type CustomerRecord struct {
	ID                  string            `json:"id,omitempty"`
	OrgID               string            `json:"orgId"`
	Email               string            `json:"email"`
	FirstName           string            `json:"firstName,omitempty"`
	LastName            string            `json:"lastName,omitempty"`
	DisplayName         string            `json:"displayName,omitempty"`
	Phone               string            `json:"phone,omitempty"`
	PreferredCategories []string          `json:"preferredCategories,omitempty"`
	PreferredProducts   []string          `json:"preferredProducts,omitempty"`
	PriceRange          enums.PriceRange  `json:"priceRange,omitempty"`
	Points              *int64            `json:"points,omitempty"`
	CustomTags          []string          `json:"customTags,omitempty"`
	BirthDate           *time.Time        `json:"birthDate,omitempty"`
	Preferences         map[string]string `json:"preferences,omitempty"`
	Source              string            `json:"source,omitempty"`
	Notes               string            `json:"notes,omitempty"`
	CreatedAt           *time.Time        `json:"createdAt,omitempty"`
}

// CustomerProfile is the merged, derived view of one customer within an org.
type CustomerProfile struct {
	ID          string `json:"id"`
	OrgID       string `json:"orgId"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone,omitempty"`

	OrderCount          int        `json:"orderCount"`
	TotalSpent          float64    `json:"totalSpent"`
	AvgOrderValue       float64    `json:"avgOrderValue"`
	FirstOrderDate      *time.Time `json:"firstOrderDate,omitempty"`
	LastOrderDate       *time.Time `json:"lastOrderDate,omitempty"`
	DaysSinceLastOrder  *int       `json:"daysSinceLastOrder,omitempty"`
	DaysSinceFirstOrder *int       `json:"daysSinceFirstOrder,omitempty"`

	Segment       enums.CustomerSegment `json:"segment"`
	Tier          enums.LoyaltyTier     `json:"tier"`
	Points        int64                 `json:"points"`
	LifetimeValue float64               `json:"lifetimeValue"`

	PreferredCategories []string          `json:"preferredCategories"`
	PreferredProducts   []string          `json:"preferredProducts"`
	PriceRange          enums.PriceRange  `json:"priceRange"`
	CustomTags          []string          `json:"customTags"`
	BirthDate           *time.Time        `json:"birthDate,omitempty"`
	Preferences         map[string]string `json:"preferences,omitempty"`
	Source              string            `json:"source,omitempty"`
	Notes               string            `json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Stats is the org-level rollup over a computed customer list.
type Stats struct {
	TotalCustomers   int                           `json:"totalCustomers"`
	NewThisWeek      int                           `json:"newThisWeek"`
	NewThisMonth     int                           `json:"newThisMonth"`
	AtRiskCount      int                           `json:"atRiskCount"`
	VIPCount         int                           `json:"vipCount"`
	AvgLifetimeValue float64                       `json:"avgLifetimeValue"`
	SegmentBreakdown map[enums.CustomerSegment]int `json:"segmentBreakdown"`
}

// SegmentSuggestion is a campaign audience proposed from the current stats.
type SegmentSuggestion struct {
	Name           string                  `json:"name"`
	Description    string                  `json:"description"`
	Segments       []enums.CustomerSegment `json:"segments"`
	EstimatedCount int                     `json:"estimatedCount"`
	Reasoning      string                  `json:"reasoning"`
}

// Result is one full pipeline run.
type Result struct {
	Customers []CustomerProfile `json:"customers"`
	Stats     Stats             `json:"stats"`
}
