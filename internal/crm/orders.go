package crm

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/dispensary-crm/pkg/db/models"
)

// OrderSource reads the order history the pipeline merges.
type OrderSource interface {
	ListOrders(ctx context.Context, orgID string) ([]OrderRecord, error)
	ListCustomerOrders(ctx context.Context, orgID, email string) ([]OrderRecord, error)
	OrgIDs(ctx context.Context, limit int) ([]string, error)
}

type gormOrderSource struct {
	db *gorm.DB
}

// NewOrderRepository reads orders from the relational store.
func NewOrderRepository(db *gorm.DB) OrderSource {
	return &gormOrderSource{db: db}
}

func (s *gormOrderSource) ListOrders(ctx context.Context, orgID string) ([]OrderRecord, error) {
	var rows []models.Order
	if err := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]OrderRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, orderFromModel(row))
	}
	return out, nil
}

// ListCustomerOrders matches the email case-insensitively.
func (s *gormOrderSource) ListCustomerOrders(ctx context.Context, orgID, email string) ([]OrderRecord, error) {
	var rows []models.Order
	if err := s.db.WithContext(ctx).
		Where("org_id = ? AND LOWER(customer_email) = ?", orgID, NormalizeEmail(email)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]OrderRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, orderFromModel(row))
	}
	return out, nil
}

func (s *gormOrderSource) OrgIDs(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Distinct("org_id").
		Order("org_id").
		Limit(limit).
		Pluck("org_id", &ids).Error
	return ids, err
}

func orderFromModel(row models.Order) OrderRecord {
	rec := OrderRecord{
		ID:        row.ID.String(),
		OrgID:     row.OrgID,
		CreatedAt: row.PlacedAt,
	}
	if row.CustomerEmail != nil {
		rec.CustomerEmail = *row.CustomerEmail
	}
	if row.CustomerName != nil {
		rec.CustomerName = *row.CustomerName
	}
	if row.CustomerPhone != nil {
		rec.CustomerPhone = *row.CustomerPhone
	}
	if row.Total.Valid {
		rec.TotalAmount = row.Total.Decimal
	}
	return rec
}
