package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dispensary-crm/pkg/config"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(config.KafkaConfig{Brokers: []string{" ", ""}}, nil)
	require.Error(t, err)

	p, err := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092 "}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9092"}, p.brokers)
}

func TestPublishWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}

	err := p.Publish(context.Background(), "crm.customer-events", "cust-1", []byte(`{"ok":true}`), map[string]string{"event_type": "customer_upserted"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "crm.customer-events", msg.Topic)
	assert.Equal(t, "cust-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "customer_upserted", string(msg.Headers[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishErrors(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("leader not available")}}
	require.Error(t, p.Publish(context.Background(), "topic", "k", nil, nil))
	require.Error(t, p.Publish(context.Background(), "", "k", nil, nil))

	var nilProducer *Producer
	require.Error(t, nilProducer.Publish(context.Background(), "topic", "k", nil, nil))
	require.NoError(t, nilProducer.Close())
}
