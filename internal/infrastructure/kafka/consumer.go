package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

type Consumer struct {
	reader *kafka.Reader
	log    *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,    // catalog events are small and latency matters
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, log: log.Named("kafka")}
}

// Consume blocks until ctx is cancelled. Handler errors are logged and the
// message is committed anyway; events are refresh signals, not deltas.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.log.Warn("error reading message", zap.Error(err))
				continue
			}

			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				c.log.Error("error handling message",
					zap.Error(err),
					zap.String("key", string(msg.Key)),
					zap.Int64("offset", msg.Offset),
				)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
