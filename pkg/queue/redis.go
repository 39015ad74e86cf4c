package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const popTimeout = 5 * time.Second

// RedisQueue implements Queue on a Redis list. Multiple workers may consume
// from the same list; Redis hands each id to exactly one of them.
type RedisQueue struct {
	client redis.UniversalClient
	key    string
	logger *slog.Logger
}

// NewRedisQueue connects to Redis using a redis:// URL.
func NewRedisQueue(ctx context.Context, logger *slog.Logger, redisURL string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisQueue{
		client: client,
		key:    DispatchTopic,
		logger: logger.With("module", "redis_queue"),
	}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, executionID string) error {
	if err := q.client.LPush(ctx, q.key, executionID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue execution %s: %w", executionID, err)
	}

	return nil
}

func (q *RedisQueue) Consume(ctx context.Context, handler Handler) error {
	q.logger.InfoContext(ctx, "Consuming dispatch queue", "key", q.key)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			q.logger.ErrorContext(ctx, "Failed to pop from dispatch queue", "error", err)
			time.Sleep(time.Second)

			continue
		}

		// BRPop returns [key, value].
		if len(result) != 2 {
			continue
		}

		executionID := result[1]

		if err := handler(ctx, executionID); err != nil {
			q.logger.ErrorContext(ctx, "Dispatch handler failed", "execution_id", executionID, "error", err)
		}
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
