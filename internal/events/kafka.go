// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher publishes events to Kafka, keyed by order id so all
// events of one order land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a publisher writing to topic on brokers. The
// underlying writer is shared across calls and safe for concurrent use.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultOrdersTopic
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
	slog.Info("kafka publisher configured", "brokers", brokers, "topic", topic)
	return &KafkaPublisher{writer: w, topic: topic}
}

// PublishOrderPlaced implements Publisher.
func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, e OrderPlaced) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal order placed: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(e.OrderID.String()),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event", Value: []byte("order.placed")},
		},
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	slog.Debug("order placed event published", "order_id", e.OrderID, "topic", p.topic)
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
