// Package events lands published CRM events in the BigQuery warehouse.
package events

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/angelmondragon/dispensary-crm/pkg/outbox"
)

// Envelope is one decoded broker message.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Actor         *outbox.ActorRef
	Payload       json.RawMessage
}

// EventRow is the customer_events table schema. Columns that only apply to
// one event type are left null for the others.
type EventRow struct {
	EventID        string              `bigquery:"event_id"`
	EventType      string              `bigquery:"event_type"`
	OrgID          string              `bigquery:"org_id"`
	AggregateID    string              `bigquery:"aggregate_id"`
	OccurredAt     time.Time           `bigquery:"occurred_at"`
	ActorUserID    bigquery.NullString `bigquery:"actor_user_id"`
	ActorRole      bigquery.NullString `bigquery:"actor_role"`
	Email          bigquery.NullString `bigquery:"email"`
	Segment        bigquery.NullString `bigquery:"segment"`
	Tier           bigquery.NullString `bigquery:"tier"`
	Created        bigquery.NullBool   `bigquery:"created"`
	TotalCustomers bigquery.NullInt64  `bigquery:"total_customers"`
	Payload        bigquery.NullJSON   `bigquery:"payload"`
	IngestedAt     time.Time           `bigquery:"ingested_at"`
}

func nullString(v string) bigquery.NullString {
	return bigquery.NullString{StringVal: v, Valid: v != ""}
}

func baseRow(env Envelope, orgID string, now time.Time) EventRow {
	row := EventRow{
		EventID:     env.EventID,
		EventType:   string(env.EventType),
		OrgID:       orgID,
		AggregateID: env.AggregateID,
		OccurredAt:  env.OccurredAt.UTC(),
		IngestedAt:  now.UTC(),
	}
	if env.Actor != nil {
		if env.Actor.UserID != uuid.Nil {
			row.ActorUserID = nullString(env.Actor.UserID.String())
		}
		row.ActorRole = nullString(env.Actor.Role)
	}
	if len(env.Payload) > 0 {
		row.Payload = bigquery.NullJSON{Valid: true, JSONVal: string(env.Payload)}
	}
	return row
}
