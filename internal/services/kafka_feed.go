package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"binwatch-backend/internal/events"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaFeed writes engine events to a topic. Events that touch a single bin
// are keyed by bin id so they stay ordered within a partition.
type KafkaFeed struct {
	writer messageWriter
}

func NewKafkaFeed(brokers []string, topic string) *KafkaFeed {
	return &KafkaFeed{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

func (f *KafkaFeed) Name() string { return "kafka-feed" }

func (f *KafkaFeed) Send(ctx context.Context, e events.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(eventKey(e)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (f *KafkaFeed) Close() error {
	return f.writer.Close()
}

func eventKey(e events.Event) string {
	if len(e.Bins) == 1 {
		return "bin-" + strconv.Itoa(e.Bins[0].BinID)
	}
	return "fleet"
}
