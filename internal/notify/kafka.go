package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"velocity/monitor-service/internal/dedup"
	"velocity/monitor-service/internal/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes each alerted posting to a Kafka topic so
// downstream consumers (analytics, the tracker) get the stream without
// subscribing over WebSocket.
type KafkaProducer struct {
	writer messageWriter
}

// NewKafkaProducer creates a producer for the given broker and topic.
func NewKafkaProducer(broker, topic string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(broker),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

// NewKafkaProducerWithWriter builds a producer using a custom writer (tests).
func NewKafkaProducerWithWriter(writer messageWriter) *KafkaProducer {
	return &KafkaProducer{writer: writer}
}

// Close shuts down the underlying writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// WriteAlert publishes one posting, keyed by its dedup identity so a
// partitioned topic keeps per-posting ordering.
func (p *KafkaProducer) WriteAlert(ctx context.Context, job model.JobPosting) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(dedup.Key(job.Source, job.ExternalID)),
		Value: payload,
		Time:  time.Now().UTC(),
	}

	return p.writer.WriteMessages(ctx, msg)
}
