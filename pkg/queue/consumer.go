// Package queue consumes start requests from a Redis list and drives the
// execution controller. It is the operator's re-drive channel for
// executions that were reported queued when the engine was at capacity.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/flowd-io/flowd/pkg/execution"
)

// DefaultQueue is the list key start requests are pushed to.
const DefaultQueue = "flowd:executions:start"

// StartRequest is one queued start, serialized as JSON on the list.
type StartRequest struct {
	ExecutionID string `json:"execution_id"`
	Initiator   string `json:"initiator,omitempty"`
}

// Starter is the controller surface the consumer needs.
type Starter interface {
	Start(ctx context.Context, executionID string) (*execution.StartResult, error)
}

// Consumer pops start requests off a Redis list and starts them.
type Consumer struct {
	client  redis.UniversalClient
	starter Starter
	queue   string
	logger  *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewConsumer connects to Redis and verifies the connection with a ping.
// An empty queue name falls back to DefaultQueue.
func NewConsumer(ctx context.Context, redisURL, queue string, starter Starter, logger *slog.Logger) (*Consumer, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Consumer{
		client:  client,
		starter: starter,
		queue:   queue,
		logger:  logger.With("module", "queue", "queue", queue),
		stopCh:  make(chan struct{}),
	}, nil
}

// Enqueue pushes a start request onto the list.
func (c *Consumer) Enqueue(ctx context.Context, req StartRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal start request: %w", err)
	}

	if err := c.client.RPush(ctx, c.queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to push start request: %w", err)
	}

	return nil
}

// Start launches the consumer loop.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.InfoContext(ctx, "Starting queue consumer")
	c.wg.Add(1)

	go c.consume(ctx)
}

// Stop shuts the consumer down and waits for the loop to exit.
func (c *Consumer) Stop() error {
	close(c.stopCh)
	c.wg.Wait()

	return c.client.Close()
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			if err := c.processMessage(ctx); err != nil {
				c.logger.ErrorContext(ctx, "Error processing start request", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context) error {
	result, err := c.client.BLPop(ctx, 1*time.Second, c.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop start request: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	var req StartRequest
	if err := json.Unmarshal([]byte(result[1]), &req); err != nil {
		return fmt.Errorf("malformed start request %q: %w", result[1], err)
	}

	if req.ExecutionID == "" {
		return errors.New("start request missing execution_id")
	}

	startResult, err := c.starter.Start(ctx, req.ExecutionID)
	if err != nil {
		return fmt.Errorf("failed to start execution %s: %w", req.ExecutionID, err)
	}

	if startResult.Queued {
		// Still at capacity. Push back and back off so the loop does not
		// spin on the same request.
		if err := c.Enqueue(ctx, req); err != nil {
			return err
		}

		time.Sleep(1 * time.Second)
	}

	return nil
}
