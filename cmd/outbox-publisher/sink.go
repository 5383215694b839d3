package main

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

// outboundMessage is one outbox row ready for a broker.
type outboundMessage struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

// sink delivers messages to a broker and blocks until the broker acknowledges.
type sink interface {
	Name() string
	Ping(ctx context.Context) error
	Send(ctx context.Context, topic string, msg outboundMessage) error
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type pubSubSink struct {
	ping      func(context.Context) error
	factory   publisherFactory
	publisher map[string]publisher
}

func newPubSubSink(client pubSubClient, factory publisherFactory) (*pubSubSink, error) {
	if client == nil {
		return nil, errors.New("pubsub client is required")
	}
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPublisher(client.Publisher(topic))
		}
	}
	return &pubSubSink{ping: client.Ping, factory: factory, publisher: map[string]publisher{}}, nil
}

func (s *pubSubSink) Name() string { return "pubsub" }

func (s *pubSubSink) Ping(ctx context.Context) error { return s.ping(ctx) }

// Send is only called from the single publish loop, so the publisher cache needs no lock.
func (s *pubSubSink) Send(ctx context.Context, topic string, msg outboundMessage) error {
	pub, ok := s.publisher[topic]
	if !ok {
		pub = s.factory(topic)
		if pub == nil {
			return nonRetryable(fmt.Errorf("publisher not configured for topic %s", topic))
		}
		s.publisher[topic] = pub
	}
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       msg.Data,
		Attributes: msg.Attributes,
	})
	if result == nil {
		return nonRetryable(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(ctx)
	return err
}

type kafkaProducer interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
	Ping(ctx context.Context) error
}

type kafkaSink struct {
	producer kafkaProducer
}

func newKafkaSink(producer kafkaProducer) (*kafkaSink, error) {
	if producer == nil {
		return nil, errors.New("kafka producer is required")
	}
	return &kafkaSink{producer: producer}, nil
}

func (s *kafkaSink) Name() string { return "kafka" }

func (s *kafkaSink) Ping(ctx context.Context) error { return s.producer.Ping(ctx) }

func (s *kafkaSink) Send(ctx context.Context, topic string, msg outboundMessage) error {
	return s.producer.Publish(ctx, topic, msg.Key, msg.Data, msg.Attributes)
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
