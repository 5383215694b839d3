package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a read-only view over the orders written by the storefront and
// POS integrations. Only the columns the CRM needs are mapped; every
// customer column is nullable because upstream writers are inconsistent.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrgID         string              `gorm:"column:org_id;type:text;not null"`
	CustomerEmail *string             `gorm:"column:customer_email;type:text"`
	CustomerName  *string             `gorm:"column:customer_name;type:text"`
	CustomerPhone *string             `gorm:"column:customer_phone;type:text"`
	Total         decimal.NullDecimal `gorm:"column:total;type:numeric(12,2)"`
	PlacedAt      *time.Time          `gorm:"column:created_at;type:timestamptz"`
}

func (Order) TableName() string { return "orders" }
