package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
)

// CRMCustomer is the stored customer record of an organization. The derived
// columns hold the values computed at the last upsert and are informational;
// reads always recompute them from orders.
type CRMCustomer struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrgID               string                `gorm:"column:org_id;type:text;not null"`
	Email               string                `gorm:"column:email;type:text;not null"`
	FirstName           string                `gorm:"column:first_name;type:text"`
	LastName            string                `gorm:"column:last_name;type:text"`
	DisplayName         string                `gorm:"column:display_name;type:text"`
	Phone               string                `gorm:"column:phone;type:text"`
	PreferredCategories pq.StringArray        `gorm:"column:preferred_categories;type:text[]"`
	PreferredProducts   pq.StringArray        `gorm:"column:preferred_products;type:text[]"`
	PriceRange          enums.PriceRange      `gorm:"column:price_range;type:text;not null"`
	CustomTags          pq.StringArray        `gorm:"column:custom_tags;type:text[]"`
	BirthDate           *time.Time            `gorm:"column:birth_date;type:date"`
	Preferences         json.RawMessage       `gorm:"column:preferences;type:jsonb"`
	Source              string                `gorm:"column:source;type:text"`
	Notes               string                `gorm:"column:notes;type:text"`
	Points              *int64                `gorm:"column:points"`
	Segment             enums.CustomerSegment `gorm:"column:segment;type:text;not null"`
	Tier                enums.LoyaltyTier     `gorm:"column:tier;type:text;not null"`
	TotalSpent          decimal.Decimal       `gorm:"column:total_spent;type:numeric(12,2);not null"`
	OrderCount          int                   `gorm:"column:order_count;not null"`
	LastOrderAt         *time.Time            `gorm:"column:last_order_at;type:timestamptz"`
	CreatedAt           time.Time             `gorm:"column:created_at;type:timestamptz;autoCreateTime:false"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;type:timestamptz;autoUpdateTime:false"`
}

func (CRMCustomer) TableName() string { return "crm_customers" }
