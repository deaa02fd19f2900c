package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Message struct {
	Key   string
	Value interface{}
}

type Producer interface {
	SendMessages(ctx context.Context, topic string, messages ...Message) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
}

// NewProducer dials the first broker to create the topic and falls back to a
// logging producer when Kafka is unreachable.
func NewProducer(brokers []string, topic string) Producer {
	if len(brokers) == 0 {
		logrus.Warn("No Kafka brokers configured, using log producer")
		return &logProducer{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		logrus.WithError(err).Warn("Kafka connection failed, using log producer")
		return &logProducer{}
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logrus.WithError(err).Info("Could not create topic (might already exist)")
	}

	return NewWriterProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	})
}

// NewWriterProducer wraps a writer that has no fixed topic.
func NewWriterProducer(w *kafka.Writer) Producer {
	return &kafkaProducer{writer: w}
}

func (p *kafkaProducer) SendMessages(ctx context.Context, topic string, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}

	out := make([]kafka.Message, 0, len(messages))
	for _, m := range messages {
		value, err := json.Marshal(m.Value)
		if err != nil {
			return fmt.Errorf("failed to marshal message %s: %w", m.Key, err)
		}
		out = append(out, kafka.Message{
			Topic: topic,
			Key:   []byte(m.Key),
			Value: value,
			Time:  time.Now(),
		})
	}

	if err := p.writer.WriteMessages(ctx, out...); err != nil {
		return fmt.Errorf("failed to write messages to %s: %w", topic, err)
	}
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

type logProducer struct{}

func (m *logProducer) SendMessages(ctx context.Context, topic string, messages ...Message) error {
	for _, msg := range messages {
		logrus.WithFields(logrus.Fields{"topic": topic, "key": msg.Key}).Info("Kafka disabled, message logged")
	}
	return nil
}

func (m *logProducer) Close() error {
	return nil
}

// NewLogProducer is used when kafka.enabled is false.
func NewLogProducer() Producer {
	return &logProducer{}
}
