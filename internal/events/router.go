package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
	"github.com/angelmondragon/dispensary-crm/pkg/outbox/payloads"
)

// ErrUnsupportedEventType marks envelopes no handler is registered for.
var ErrUnsupportedEventType = errors.New("unsupported event type")

// Handler processes one decoded envelope.
type Handler interface {
	Handle(ctx context.Context, envelope Envelope) error
}

type rowMapper func(envelope Envelope, payload any, now time.Time) (EventRow, error)

type route struct {
	factory func() any
	mapRow  rowMapper
}

// Router decodes each envelope's payload by event type and writes its row.
type Router struct {
	routes map[enums.OutboxEventType]route
	writer Writer
	logg   *logger.Logger
	clock  func() time.Time
}

// NewRouter wires the handlers for every CRM event type.
func NewRouter(writer Writer, logg *logger.Logger) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Router{
		routes: map[enums.OutboxEventType]route{
			enums.EventCustomerUpserted: {
				factory: func() any { return &payloads.CustomerUpsertedEvent{} },
				mapRow:  customerUpsertedRow,
			},
			enums.EventSegmentsRefreshed: {
				factory: func() any { return &payloads.SegmentsRefreshedEvent{} },
				mapRow:  segmentsRefreshedRow,
			},
		},
		writer: writer,
		logg:   logg,
		clock:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Handle implements Handler.
func (r *Router) Handle(ctx context.Context, envelope Envelope) error {
	rt, ok := r.routes[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	payload := rt.factory()
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	row, err := rt.mapRow(envelope, payload, r.clock())
	if err != nil {
		return err
	}
	return r.writer.InsertEvent(ctx, row)
}

func customerUpsertedRow(envelope Envelope, payload any, now time.Time) (EventRow, error) {
	event, ok := payload.(*payloads.CustomerUpsertedEvent)
	if !ok {
		return EventRow{}, fmt.Errorf("unexpected payload %T", payload)
	}
	if event.OrgID == "" {
		return EventRow{}, errors.New("customer_upserted: org_id missing")
	}
	row := baseRow(envelope, event.OrgID, now)
	row.Email = nullString(event.Email)
	row.Segment = nullString(string(event.Segment))
	row.Tier = nullString(string(event.Tier))
	row.Created = bigquery.NullBool{Bool: event.Created, Valid: true}
	return row, nil
}

func segmentsRefreshedRow(envelope Envelope, payload any, now time.Time) (EventRow, error) {
	event, ok := payload.(*payloads.SegmentsRefreshedEvent)
	if !ok {
		return EventRow{}, fmt.Errorf("unexpected payload %T", payload)
	}
	if event.OrgID == "" {
		return EventRow{}, errors.New("segments_refreshed: org_id missing")
	}
	row := baseRow(envelope, event.OrgID, now)
	row.TotalCustomers = bigquery.NullInt64{Int64: int64(event.TotalCustomers), Valid: true}
	return row, nil
}
