// v1
// internal/telemetry/kafka.go
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/riverbotics/aquafleet/internal/storage"
)

// KafkaPublisher writes readings to <prefix>.<robotID>, keyed by robot id
// so one robot's records stay ordered on a single partition.
type KafkaPublisher struct {
	writer      *kafka.Writer
	topicPrefix string
	log         *slog.Logger
}

// NewKafkaPublisher builds a writer bound to the brokers. The topic is
// chosen per message, so one writer serves the whole fleet.
func NewKafkaPublisher(brokers []string, topicPrefix string, log *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	log.Info("kafka publisher ready", "brokers", brokers, "topicPrefix", topicPrefix)
	return &KafkaPublisher{writer: w, topicPrefix: topicPrefix, log: log}
}

func (p *KafkaPublisher) PublishRecord(ctx context.Context, rec storage.Record) error {
	b, err := json.Marshal(qualityPayloadFor(rec))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg := kafka.Message{
		Topic: p.topicPrefix + "." + rec.RobotID,
		Key:   []byte(rec.RobotID),
		Value: b,
		Time:  rec.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
