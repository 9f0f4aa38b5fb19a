// Package audit publishes assessment lifecycle events to the audit stream.
package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/cloudsentry/posture/internal/config"
	"github.com/cloudsentry/posture/internal/domain/service"
	"github.com/cloudsentry/posture/pkg/logger"
)

// KafkaPublisher is a Kafka-backed implementation of the AuditPublisher port.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger logger.Logger
}

// NewKafkaPublisher creates a publisher for the configured brokers and topic.
// When no brokers are configured it returns a no-op publisher instead.
func NewKafkaPublisher(cfg *config.KafkaConfig, log logger.Logger) service.AuditPublisher {
	if len(cfg.Brokers) == 0 {
		return &NoopPublisher{}
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaPublisher{
		writer: writer,
		logger: log.WithComponent("audit-publisher"),
	}
}

// AssessmentCompleted emits one assessment.completed event. Publish failures
// are logged, never surfaced: audit must not affect the assessment itself.
func (p *KafkaPublisher) AssessmentCompleted(ctx context.Context, event service.AssessmentEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "Failed to marshal audit event", err)
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TenantID),
		Value: payload,
	}); err != nil {
		p.logger.Error(ctx, "Failed to publish audit event", err,
			logger.String("assessment_id", event.AssessmentID),
		)
	}
}

// Close closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event. Used when no audit stream is configured.
type NoopPublisher struct{}

func (p *NoopPublisher) AssessmentCompleted(ctx context.Context, event service.AssessmentEvent) {}
func (p *NoopPublisher) Close() error                                                           { return nil }
