package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	appctx "github.com/werkbank-digital/planned/pkg/context"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

// Config holds Kafka configuration
type Config struct {
	Brokers []string
	Topic   string
}

// ParseConfig parses a comma-separated broker string
func ParseConfig(brokers string, topic string) Config {
	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	return Config{
		Brokers: brokerList,
		Topic:   topic,
	}
}

// SyncEventMessage is a lifecycle event for one sync run, intended for
// downstream consumers (reporting, notifications) that want to react to
// finished syncs without polling the sync log.
type SyncEventMessage struct {
	Type      string    `json:"type"` // "sync.completed"
	TenantID  string    `json:"tenant_id"`
	Service   string    `json:"service"`
	Operation string    `json:"operation"`
	Success   bool      `json:"success"`
	SyncRunID string    `json:"sync_run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// Producer publishes sync lifecycle events to Kafka
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a Kafka producer for sync events
func NewProducer(cfg Config, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		// Lets the first publish in a fresh dev environment create the
		// topic instead of failing with "Unknown Topic Or Partition"
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishSyncCompleted publishes a sync.completed event. Implements the
// sync layer's EventPublisher port.
func (p *Producer) PublishSyncCompleted(ctx context.Context, tenantID string, service models.SyncService, operation string, success bool) error {
	ctx, span := tracing.StartSpan(ctx, "Events.PublishSyncCompleted")
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("tenant_id", tenantID),
		attribute.String("service", string(service)),
	)

	msg := SyncEventMessage{
		Type:      "sync.completed",
		TenantID:  tenantID,
		Service:   string(service),
		Operation: operation,
		Success:   success,
		SyncRunID: appctx.GetSyncRunID(ctx),
		Timestamp: time.Now().UTC(),
		TraceID:   tracing.GetTraceID(ctx),
		SpanID:    tracing.GetSpanID(ctx),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal sync event")
		return fmt.Errorf("failed to marshal sync event: %w", err)
	}

	// tenant_id + service keys the partition so events for one integration
	// stay ordered
	key := fmt.Sprintf("%s:%s", tenantID, service)
	headers := []kafka.Header{
		{Key: "tenant_id", Value: []byte(tenantID)},
		{Key: "service", Value: []byte(service)},
		{Key: "type", Value: []byte(msg.Type)},
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: headers,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish sync event")
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish sync event to Kafka topic %s", p.topic)
		return err
	}

	return nil
}
