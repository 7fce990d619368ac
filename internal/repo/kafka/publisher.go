package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/pkg/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes task events as JSON, keyed by task id.
type Publisher struct {
	writer messageWriter
	logger *logrus.Logger
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return newPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	})
}

func newPublisher(w messageWriter) *Publisher {
	return &Publisher{writer: w, logger: logger.Log}
}

func (p *Publisher) Publish(ctx context.Context, evt entity.TaskEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.PartitionKey()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithFields(logrus.Fields{
			"event":   evt.Type,
			"task_id": evt.TaskID,
		}).WithError(err).Error("Failed to publish task event")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event":   evt.Type,
		"task_id": evt.TaskID,
	}).Debug("Task event published")
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
