package queue

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoChannelQueue_EnqueueConsume(t *testing.T) {
	q := NewGoChannelQueue(slog.Default())
	defer func() {
		assert.NoError(t, q.Close())
	}()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var (
		mu       sync.Mutex
		received []string
	)

	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = q.Consume(ctx, func(_ context.Context, executionID string) error {
			mu.Lock()
			received = append(received, executionID)
			mu.Unlock()

			if executionID == "e3" {
				cancel()
			}

			return nil
		})
	}()

	// Give the subscriber a moment to attach before publishing.
	time.Sleep(50 * time.Millisecond)

	for _, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, q.Enqueue(ctx, id))
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consume loop did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"e1", "e2", "e3"}, received)
}

func TestGoChannelQueue_EnqueueBeforeConsumeIsNotLost(t *testing.T) {
	q := NewGoChannelQueue(slog.Default())
	defer func() {
		assert.NoError(t, q.Close())
	}()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	// No consumer attached yet.
	require.NoError(t, q.Enqueue(ctx, "early"))

	received := make(chan string, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = q.Consume(ctx, func(_ context.Context, executionID string) error {
			received <- executionID
			cancel()

			return nil
		})
	}()

	select {
	case id := <-received:
		assert.Equal(t, "early", id)
	case <-time.After(5 * time.Second):
		t.Fatal("id enqueued before the consumer attached was not delivered")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consume loop did not stop")
	}
}

func TestGoChannelQueue_HandlerErrorDoesNotStopConsumption(t *testing.T) {
	q := NewGoChannelQueue(slog.Default())
	defer func() {
		assert.NoError(t, q.Close())
	}()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var (
		mu   sync.Mutex
		seen []string
	)

	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = q.Consume(ctx, func(_ context.Context, executionID string) error {
			mu.Lock()
			seen = append(seen, executionID)
			mu.Unlock()

			if executionID == "bad" {
				return assert.AnError
			}

			if executionID == "last" {
				cancel()
			}

			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)

	for _, id := range []string{"bad", "last"} {
		require.NoError(t, q.Enqueue(ctx, id))
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consume loop did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"bad", "last"}, seen)
}
