package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"plotforge/internal/interfaces"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Dead-letter wiring for the DNA task queue. Names must match on the
// consumer side.
const (
	DNATasksDLX           = "dna_extraction_tasks_dlx"
	DNATasksDLQRoutingKey = "dlq"
	DNATasksDLQSuffix     = "_dlq"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.DNATaskPublisher = (*rabbitMQPublisher)(nil)

// rabbitMQPublisher publishes DNA extraction tasks to RabbitMQ.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQDNATaskPublisher opens a channel and declares the task queue
// with its dead-letter exchange. The publisher declares the queue too so the
// system tolerates any service start order; queue parameters must match the
// consumer's.
func NewRabbitMQDNATaskPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (interfaces.DNATaskPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("dna task publisher: failed to open channel: %w", err)
	}

	if err := declareDNATaskQueue(ch, queueName); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("dna task publisher: %w", err)
	}

	return &rabbitMQPublisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("DNATaskPublisher"),
	}, nil
}

// declareDNATaskQueue declares the durable task queue, its DLX and the DLQ.
func declareDNATaskQueue(ch *amqp.Channel, queueName string) error {
	if err := ch.ExchangeDeclare(DNATasksDLX, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLX: %w", err)
	}

	dlqName := queueName + DNATasksDLQSuffix
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ '%s': %w", dlqName, err)
	}
	if err := ch.QueueBind(dlqName, DNATasksDLQRoutingKey, DNATasksDLX, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ '%s': %w", dlqName, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    DNATasksDLX,
		"x-dead-letter-routing-key": DNATasksDLQRoutingKey,
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", queueName, err)
	}
	return nil
}

// PublishDNATask publishes one extraction task.
func (p *rabbitMQPublisher) PublishDNATask(ctx context.Context, payload interfaces.DNAExtractionTaskPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal DNA task payload: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(pubCtx,
		"",          // exchange (default)
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    payload.TaskID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish DNA task",
			zap.Error(err), zap.String("taskID", payload.TaskID),
			zap.String("chapterID", payload.ChapterID.String()))
		return fmt.Errorf("failed to publish DNA task: %w", err)
	}

	p.logger.Debug("DNA task published",
		zap.String("taskID", payload.TaskID),
		zap.String("chapterID", payload.ChapterID.String()))
	return nil
}
