package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"plotforge/internal/interfaces"
	"plotforge/internal/messaging"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DLQConsumer drains the dead-letter queue of the DNA task queue. Tasks that
// land here exhausted their retries; we log them for operators and ack so the
// queue does not grow without bound. Chapters keep working without a
// continuity record, so there is nothing to replay automatically.
type DLQConsumer struct {
	conn      *amqp.Connection
	queueName string
	logger    *zap.Logger
	channel   *amqp.Channel
}

// NewDLQConsumer creates a consumer for "<taskQueue>_dlq".
func NewDLQConsumer(conn *amqp.Connection, taskQueueName string, logger *zap.Logger) *DLQConsumer {
	return &DLQConsumer{
		conn:      conn,
		queueName: taskQueueName + messaging.DNATasksDLQSuffix,
		logger:    logger.Named("DNATaskDLQConsumer"),
	}
}

// Start begins draining the DLQ until ctx is done.
func (c *DLQConsumer) Start(ctx context.Context) error {
	var err error
	c.channel, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("dlq consumer: failed to open channel: %w", err)
	}

	deliveries, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("dlq consumer: failed to register consumer: %w", err)
	}

	c.logger.Info("DLQ consumer started", zap.String("queue", c.queueName))

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				c.handle(d)
			}
		}
	}()
	return nil
}

func (c *DLQConsumer) handle(d amqp.Delivery) {
	dnaTasksTotal.WithLabelValues("dead_letter").Inc()

	var payload interfaces.DNAExtractionTaskPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		c.logger.Error("Dead-lettered DNA task with unparseable body",
			zap.Error(err), zap.ByteString("body", d.Body))
	} else {
		c.logger.Error("DNA task dead-lettered after exhausting retries",
			zap.String("taskID", payload.TaskID),
			zap.String("storyID", payload.StoryID.String()),
			zap.String("chapterID", payload.ChapterID.String()),
			zap.Int("branchNumber", payload.BranchNumber),
			zap.Int("chapterNumber", payload.ChapterNumber))
	}

	if err := d.Ack(false); err != nil {
		c.logger.Error("Failed to ack dead-lettered task", zap.Error(err))
	}
}

// Close shuts the channel down.
func (c *DLQConsumer) Close() error {
	if c.channel != nil {
		return c.channel.Close()
	}
	return nil
}
