package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"plotforge/internal/interfaces"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TaskProcessor handles one decoded DNA extraction task. A returned error
// nacks the delivery; after maxRetries redeliveries the message is routed to
// the DLQ instead of being requeued.
type TaskProcessor interface {
	Process(ctx context.Context, payload interfaces.DNAExtractionTaskPayload) error
}

// Consumer drives the DNA extraction queue.
type Consumer struct {
	conn       *amqp.Connection
	queueName  string
	prefetch   int
	maxRetries int
	processor  TaskProcessor
	logger     *zap.Logger
	channel    *amqp.Channel
	done       chan struct{}
}

// NewConsumer creates a consumer for the DNA task queue.
func NewConsumer(conn *amqp.Connection, queueName string, prefetch, maxRetries int, processor TaskProcessor, logger *zap.Logger) *Consumer {
	if prefetch < 1 {
		prefetch = 1
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Consumer{
		conn:       conn,
		queueName:  queueName,
		prefetch:   prefetch,
		maxRetries: maxRetries,
		processor:  processor,
		logger:     logger.Named("DNATaskConsumer"),
		done:       make(chan struct{}),
	}
}

// Start declares the queue topology and begins consuming until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	var err error
	c.channel, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareDNATaskQueue(c.channel, c.queueName); err != nil {
		_ = c.channel.Close()
		return err
	}

	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := c.channel.Consume(
		c.queueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack off: we ack after processing
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("DNA task consumer started",
		zap.String("queue", c.queueName), zap.Int("prefetch", c.prefetch))

	go c.loop(ctx, deliveries)
	return nil
}

func (c *Consumer) loop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("DNA task consumer stopping")
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("Delivery channel closed")
				return
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var payload interfaces.DNAExtractionTaskPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		c.logger.Error("Unparseable DNA task, routing to DLQ", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	logFields := []zap.Field{
		zap.String("taskID", payload.TaskID),
		zap.String("chapterID", payload.ChapterID.String()),
	}

	if err := c.processor.Process(ctx, payload); err != nil {
		if deliveryCount(d) >= int64(c.maxRetries) {
			c.logger.Error("DNA task exhausted retries, routing to DLQ",
				append(logFields, zap.Error(err))...)
			_ = d.Nack(false, false) // no requeue, DLX picks it up
			return
		}
		c.logger.Warn("DNA task failed, requeueing", append(logFields, zap.Error(err))...)
		_ = d.Nack(false, true)
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.Error("Failed to ack DNA task", append(logFields, zap.Error(err))...)
	}
}

// deliveryCount returns how many times the broker has delivered the message.
func deliveryCount(d amqp.Delivery) int64 {
	if d.Headers != nil {
		if v, ok := d.Headers["x-delivery-count"]; ok {
			if n, ok := v.(int64); ok {
				return n + 1
			}
		}
	}
	if d.Redelivered {
		// Classic queues don't track a count; treat any redelivery as the
		// last attempt to avoid hot requeue loops.
		return int64(^uint64(0) >> 1)
	}
	return 1
}

// Done is closed when the consume loop exits.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Close shuts the channel down.
func (c *Consumer) Close() error {
	if c.channel != nil {
		return c.channel.Close()
	}
	return nil
}
