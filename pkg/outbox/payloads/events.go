package payloads

import (
	"time"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
)

// CustomerUpsertedEvent is emitted when a CRM record is created or edited.
type CustomerUpsertedEvent struct {
	CustomerID string                `json:"customer_id"`
	OrgID      string                `json:"org_id"`
	Email      string                `json:"email"`
	Segment    enums.CustomerSegment `json:"segment"`
	Tier       enums.LoyaltyTier     `json:"tier"`
	Created    bool                  `json:"created"`
}

// SegmentsRefreshedEvent summarizes one scheduled recompute of an org.
type SegmentsRefreshedEvent struct {
	OrgID            string                        `json:"org_id"`
	TotalCustomers   int                           `json:"total_customers"`
	SegmentBreakdown map[enums.CustomerSegment]int `json:"segment_breakdown"`
	RefreshedAt      time.Time                     `json:"refreshed_at"`
}
