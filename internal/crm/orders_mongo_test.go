package crm

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOrderFromDocumentDecodesTotals(t *testing.T) {
	placed := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	dec, err := primitive.ParseDecimal128("120.55")
	require.NoError(t, err)

	cases := []struct {
		name  string
		total any
		want  string
	}{
		{"double", 42.5, "42.5"},
		{"int32", int32(40), "40"},
		{"int64", int64(41), "41"},
		{"decimal128", dec, "120.55"},
		{"string", "19.99", "19.99"},
		{"garbage string", "n/a", "0"},
		{"null", nil, "0"},
		{"nan double", math.NaN(), "0"},
		{"positive infinity", math.Inf(1), "0"},
		{"negative infinity", math.Inf(-1), "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := bson.Marshal(bson.M{
				"orgId":         "org-1",
				"customerEmail": "Jane@Example.com",
				"customerName":  "Jane Doe",
				"total":         tc.total,
				"createdAt":     placed,
			})
			require.NoError(t, err)

			var doc orderDocument
			require.NoError(t, bson.Unmarshal(raw, &doc))
			rec := orderFromDocument(doc)

			assert.Equal(t, tc.want, rec.TotalAmount.String())
			assert.Equal(t, "Jane@Example.com", rec.CustomerEmail)
			require.NotNil(t, rec.CreatedAt)
			assert.True(t, rec.CreatedAt.Equal(placed))
		})
	}
}

func TestOrderFromDocumentMissingFields(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"_id": primitive.NewObjectID(), "orgId": "org-1"})
	require.NoError(t, err)

	var doc orderDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	rec := orderFromDocument(doc)

	assert.NotEmpty(t, rec.ID)
	assert.True(t, rec.TotalAmount.IsZero())
	assert.Nil(t, rec.CreatedAt)
	assert.Empty(t, rec.CustomerEmail)
}
