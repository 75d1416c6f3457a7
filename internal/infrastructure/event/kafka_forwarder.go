package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the forwarder uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DefaultForwarderBuffer is the number of messages queued before Handle starts rejecting
const DefaultForwarderBuffer = 256

var (
	// ErrForwarderClosed is returned by Handle after Close
	ErrForwarderClosed = errors.New("kafka forwarder is closed")
	// ErrForwarderBusy is returned when the outbound queue is full
	ErrForwarderBusy = errors.New("kafka forwarder queue is full")
)

// KafkaForwarder is an event handler that copies order events to a Kafka topic.
// Messages are keyed by order id so one order's events stay in partition order.
// Handle only queues; a background loop writes to the broker, so a slow broker
// never delays the request that published the event.
type KafkaForwarder struct {
	writer       MessageWriter
	producer     string
	writeTimeout time.Duration
	logger       *zap.Logger

	inbox  chan kafka.Message
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

// NewKafkaWriter builds an async writer for the configured brokers and topic.
// Delivery failures are reported through log.
func NewKafkaWriter(cfg config.KafkaConfig, log *zap.Logger) (*kafka.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		Async:                  true,
		Completion:             deliveryReporter(log),
		Transport:              &kafka.Transport{ClientID: cfg.ClientID},
	}, nil
}

func deliveryReporter(log *zap.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, msg := range msgs {
			log.Error("Kafka delivery failed",
				zap.String("event_type", headerValue(msg, "event_type")),
				zap.String("event_id", headerValue(msg, "event_id")),
				zap.Error(err),
			)
		}
	}
}

// NewKafkaForwarder creates a forwarder and starts its write loop.
// producer names this service in every envelope.
func NewKafkaForwarder(writer MessageWriter, producer string, log *zap.Logger) *KafkaForwarder {
	if log == nil {
		log = zap.NewNop()
	}
	f := &KafkaForwarder{
		writer:       writer,
		producer:     producer,
		writeTimeout: 5 * time.Second,
		logger:       log,
		inbox:        make(chan kafka.Message, DefaultForwarderBuffer),
		done:         make(chan struct{}),
	}
	go f.run()
	return f
}

// EventTypes lists the forwarded events
func (f *KafkaForwarder) EventTypes() []string {
	return []string{
		order.EventTypeOrderPlaced,
		order.EventTypeOrderStatusChanged,
		order.EventTypeAfterSalesRequested,
		order.EventTypeAfterSalesDecided,
	}
}

// Handle encodes the event and queues it for the write loop
func (f *KafkaForwarder) Handle(ctx context.Context, evt shared.DomainEvent) error {
	correlationID := logger.GetRequestID(ctx)
	env, err := NewEnvelope(evt, f.producer, correlationID)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.AggregateID().String()),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrForwarderClosed
	}
	select {
	case f.inbox <- msg:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s %s", ErrForwarderBusy, env.EventType, env.EventID)
	}
}

func (f *KafkaForwarder) run() {
	defer close(f.done)
	for msg := range f.inbox {
		f.write(msg)
	}
}

func (f *KafkaForwarder) write(msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), f.writeTimeout)
	defer cancel()

	fields := []zap.Field{
		zap.String("event_type", headerValue(msg, "event_type")),
		zap.String("event_id", headerValue(msg, "event_id")),
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		f.logger.Error("Failed to forward event", append(fields, zap.Error(err))...)
		return
	}
	f.logger.Debug("Forwarded event", fields...)
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Close stops accepting events, flushes the queue and closes the writer
func (f *KafkaForwarder) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.inbox)
	f.mu.Unlock()

	<-f.done
	return f.writer.Close()
}

var _ shared.EventHandler = (*KafkaForwarder)(nil)
