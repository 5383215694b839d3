package crm

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// orderDocument mirrors the order documents written by the storefront. Totals
// arrive as doubles from older writers and Decimal128 from newer ones.
type orderDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	OrgID         string             `bson:"orgId"`
	CustomerEmail string             `bson:"customerEmail"`
	CustomerName  string             `bson:"customerName"`
	CustomerPhone string             `bson:"customerPhone"`
	Total         bson.RawValue      `bson:"total"`
	CreatedAt     *time.Time         `bson:"createdAt"`
}

type mongoOrderSource struct {
	orders *mongo.Collection
}

// NewMongoOrderSource reads orders from a document collection.
func NewMongoOrderSource(orders *mongo.Collection) OrderSource {
	return &mongoOrderSource{orders: orders}
}

func (s *mongoOrderSource) ListOrders(ctx context.Context, orgID string) ([]OrderRecord, error) {
	return s.find(ctx, bson.M{"orgId": orgID}, findOptions())
}

// ListCustomerOrders matches the email case-insensitively through a
// secondary-strength collation.
func (s *mongoOrderSource) ListCustomerOrders(ctx context.Context, orgID, email string) ([]OrderRecord, error) {
	opts := findOptions().SetCollation(&options.Collation{Locale: "en", Strength: 2})
	return s.find(ctx, bson.M{"orgId": orgID, "customerEmail": NormalizeEmail(email)}, opts)
}

func findOptions() *options.FindOptions {
	return options.Find().
		SetProjection(bson.M{
			"orgId":         1,
			"customerEmail": 1,
			"customerName":  1,
			"customerPhone": 1,
			"total":         1,
			"createdAt":     1,
		}).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})
}

func (s *mongoOrderSource) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]OrderRecord, error) {
	cursor, err := s.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	var out []OrderRecord
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		out = append(out, orderFromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

func (s *mongoOrderSource) OrgIDs(ctx context.Context, limit int) ([]string, error) {
	values, err := s.orders.Distinct(ctx, "orgId", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct org ids: %w", err)
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		id, ok := v.(string)
		if !ok || id == "" {
			continue
		}
		ids = append(ids, id)
		if limit > 0 && len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func orderFromDocument(doc orderDocument) OrderRecord {
	rec := OrderRecord{
		OrgID:         doc.OrgID,
		CustomerEmail: doc.CustomerEmail,
		CustomerName:  doc.CustomerName,
		CustomerPhone: doc.CustomerPhone,
		TotalAmount:   decimalFromRaw(doc.Total),
		CreatedAt:     doc.CreatedAt,
	}
	if !doc.ID.IsZero() {
		rec.ID = doc.ID.Hex()
	}
	return rec
}

// decimalFromRaw treats missing or unreadable totals as zero.
func decimalFromRaw(v bson.RawValue) decimal.Decimal {
	switch v.Type {
	case bsontype.Double:
		if f, ok := v.DoubleOK(); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return decimal.NewFromFloat(f)
		}
	case bsontype.Int32:
		if i, ok := v.Int32OK(); ok {
			return decimal.NewFromInt32(i)
		}
	case bsontype.Int64:
		if i, ok := v.Int64OK(); ok {
			return decimal.NewFromInt(i)
		}
	case bsontype.Decimal128:
		if d, ok := v.Decimal128OK(); ok {
			if parsed, err := decimal.NewFromString(d.String()); err == nil {
				return parsed
			}
		}
	case bsontype.String:
		if s, ok := v.StringValueOK(); ok {
			if parsed, err := decimal.NewFromString(s); err == nil {
				return parsed
			}
		}
	}
	return decimal.Zero
}
