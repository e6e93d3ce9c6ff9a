package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/user/linkalert/internal/model"
)

// KafkaChannel publishes alerts as JSON events to a Kafka topic so
// downstream systems (ticketing, archival) can consume them.
type KafkaChannel struct {
	writer *kafka.Writer
}

// kafkaEvent is the wire shape of one published alert.
type kafkaEvent struct {
	Subject    string         `json:"subject"`
	Body       string         `json:"body"`
	Priority   model.Priority `json:"priority"`
	Recipients []string       `json:"recipients,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewKafkaChannel creates the kafka channel writing to the given topic.
func NewKafkaChannel(brokers []string, topic string) *KafkaChannel {
	return &KafkaChannel{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Name implements Channel.
func (c *KafkaChannel) Name() string { return "kafka" }

// Send implements Channel. The subject keys the message so alerts for the
// same sensor land on the same partition.
func (c *KafkaChannel) Send(ctx context.Context, recipients []string, subject, body string, priority model.Priority) error {
	data, err := json.Marshal(kafkaEvent{
		Subject:    subject,
		Body:       body,
		Priority:   priority,
		Recipients: recipients,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return c.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(subject),
		Value: data,
	})
}

// Close releases the underlying Kafka writer.
func (c *KafkaChannel) Close() error {
	return c.writer.Close()
}
