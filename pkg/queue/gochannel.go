package queue

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// GoChannelQueue implements Queue on watermill's in-process pub/sub. Used in
// development and tests, and in single-process deployments where the worker
// runs inside the API process. The channel is persistent so ids enqueued
// before the consumer attaches are delivered, not dropped.
type GoChannelQueue struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
}

func NewGoChannelQueue(logger *slog.Logger) *GoChannelQueue {
	return &GoChannelQueue{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
			Persistent:          true,
		}, watermill.NewSlogLogger(logger)),
		logger: logger.With("module", "gochannel_queue"),
	}
}

func (q *GoChannelQueue) Enqueue(_ context.Context, executionID string) error {
	msg := message.NewMessage(watermill.NewULID(), []byte(executionID))

	return q.pubsub.Publish(DispatchTopic, msg)
}

func (q *GoChannelQueue) Consume(ctx context.Context, handler Handler) error {
	messages, err := q.pubsub.Subscribe(ctx, DispatchTopic)
	if err != nil {
		return err
	}

	for msg := range messages {
		executionID := string(msg.Payload)

		if err := handler(ctx, executionID); err != nil {
			q.logger.ErrorContext(ctx, "Dispatch handler failed", "execution_id", executionID, "error", err)
		}

		msg.Ack()
	}

	return nil
}

func (q *GoChannelQueue) Close() error {
	return q.pubsub.Close()
}
