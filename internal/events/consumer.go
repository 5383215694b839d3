package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
	"github.com/angelmondragon/dispensary-crm/pkg/outbox"
)

const consumerName = "events-warehouse"

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// message is the broker-neutral view of one delivery.
type message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Consumer pulls CRM events from Pub/Sub and hands each one to a Handler once.
type Consumer struct {
	subscription receiver
	handler      Handler
	guard        idempotencyChecker
	logg         *logger.Logger
}

// NewConsumer builds a consumer over a Pub/Sub subscription.
func NewConsumer(subscription *gcppubsub.Subscriber, handler Handler, guard idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("events subscription is required")
	}
	return newConsumer(subscription, handler, guard, logg)
}

func newConsumer(subscription receiver, handler Handler, guard idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("events handler is required")
	}
	if guard == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		subscription: subscription,
		handler:      handler,
		guard:        guard,
		logg:         logg,
	}, nil
}

// Run receives until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, message{ID: msg.ID, Data: msg.Data, Attributes: msg.Attributes}) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked. Malformed messages
// are acked and logged since redelivery cannot fix them.
func (c *Consumer) process(ctx context.Context, msg message) bool {
	fields := map[string]any{"message_id": msg.ID}
	logCtx := c.logg.WithFields(ctx, fields)

	envelope, err := decodeEnvelope(msg)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "invalid event envelope")
		return true
	}
	fields["event_id"] = envelope.EventID
	fields["event_type"] = envelope.EventType
	fields["aggregate_id"] = envelope.AggregateID
	logCtx = c.logg.WithFields(ctx, fields)

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Warn(logCtx, "invalid event id")
		return true
	}

	already, err := c.guard.CheckAndMarkProcessed(logCtx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if already {
		c.logg.Debug(logCtx, "event already processed")
		return true
	}

	if err := c.handler.Handle(logCtx, *envelope); err != nil {
		if errors.Is(err, ErrUnsupportedEventType) {
			c.logg.Warn(logCtx, "event type not warehoused")
			return true
		}
		c.logg.Error(logCtx, "event handler failed", err)
		if delErr := c.guard.Delete(logCtx, consumerName, eventID); delErr != nil {
			c.logg.Warn(c.logg.WithField(logCtx, "error", delErr.Error()), "failed to clear idempotency mark")
		}
		return false
	}

	c.logg.Info(logCtx, "event warehoused")
	return true
}

func decodeEnvelope(msg message) (*Envelope, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	attr := func(key string) string { return strings.TrimSpace(msg.Attributes[key]) }

	eventType, err := enums.ParseOutboxEventType(attr("event_type"))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := attr("aggregate_id")
	if aggregateID == "" {
		return nil, errors.New("aggregate_id missing")
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			occurredAt = parsed
		}
	}

	eventID := strings.TrimSpace(stored.EventID)
	if eventID == "" {
		eventID = attr("event_id")
	}
	if eventID == "" {
		return nil, errors.New("event_id missing")
	}

	return &Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Actor:         stored.Actor,
		Payload:       stored.Data,
	}, nil
}
