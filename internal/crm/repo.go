package crm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/dispensary-crm/pkg/db/models"
)

// Repository persists CRM customer records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListRecords(ctx context.Context, orgID string) ([]CustomerRecord, error)
	FindByEmail(ctx context.Context, orgID, email string) (*models.CRMCustomer, error)
	Upsert(ctx context.Context, row *models.CRMCustomer) error
	ListOrgIDs(ctx context.Context, limit int) ([]string, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository builds a Repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) ListRecords(ctx context.Context, orgID string) ([]CustomerRecord, error) {
	var rows []models.CRMCustomer
	if err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Order("email ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]CustomerRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromModel(row))
	}
	return records, nil
}

// FindByEmail returns nil without error when the org has no such record.
func (r *repositoryImpl) FindByEmail(ctx context.Context, orgID, email string) (*models.CRMCustomer, error) {
	var row models.CRMCustomer
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND email = ?", orgID, NormalizeEmail(email)).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert inserts the record or overwrites the editable and derived columns of
// the existing (org_id, email) row. created_at and id are never overwritten.
func (r *repositoryImpl) Upsert(ctx context.Context, row *models.CRMCustomer) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "org_id"}, {Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"first_name", "last_name", "display_name", "phone",
				"preferred_categories", "preferred_products", "price_range",
				"custom_tags", "birth_date", "preferences", "source", "notes",
				"points", "segment", "tier", "total_spent", "order_count",
				"last_order_at", "updated_at",
			}),
		}).
		Create(row).Error
}

// ListOrgIDs returns organizations that have at least one CRM record.
func (r *repositoryImpl) ListOrgIDs(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.CRMCustomer{}).
		Distinct("org_id").
		Order("org_id").
		Limit(limit).
		Pluck("org_id", &ids).Error
	return ids, err
}

func recordFromModel(row models.CRMCustomer) CustomerRecord {
	created := row.CreatedAt
	record := CustomerRecord{
		ID:                  row.ID.String(),
		OrgID:               row.OrgID,
		Email:               row.Email,
		FirstName:           row.FirstName,
		LastName:            row.LastName,
		DisplayName:         row.DisplayName,
		Phone:               row.Phone,
		PreferredCategories: []string(row.PreferredCategories),
		PreferredProducts:   []string(row.PreferredProducts),
		PriceRange:          row.PriceRange,
		Points:              row.Points,
		CustomTags:          []string(row.CustomTags),
		BirthDate:           row.BirthDate,
		Source:              row.Source,
		Notes:               row.Notes,
	}
	if !created.IsZero() {
		record.CreatedAt = &created
	}
	if len(row.Preferences) > 0 {
		var prefs map[string]string
		if err := json.Unmarshal(row.Preferences, &prefs); err == nil && len(prefs) > 0 {
			record.Preferences = prefs
		}
	}
	return record
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
