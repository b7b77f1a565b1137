package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/faultline/internal/observability"
	"github.com/kursadbilgin/faultline/internal/scoped"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const defaultDialTimeout = 5 * time.Second

type amqpChannel interface {
	topologyDeclarer
	Tx() error
	TxCommit() error
	TxRollback() error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConnection interface {
	Channel() (amqpChannel, error)
	Close() error
}

// Dialer opens a broker connection.
type Dialer func(ctx context.Context, url string) (amqpConnection, error)

type brokerConnection struct {
	conn *amqp.Connection
}

func (c brokerConnection) Channel() (amqpChannel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (c brokerConnection) Close() error {
	return c.conn.Close()
}

func dialBroker(ctx context.Context, url string) (amqpConnection, error) {
	timeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", context.DeadlineExceeded)
	}

	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}
	return brokerConnection{conn: conn}, nil
}

// RabbitMQPublisher publishes each message on its own connection and channel
// inside a broker transaction. Both are closed on every path.
type RabbitMQPublisher struct {
	url     string
	dial    Dialer
	metrics *observability.Metrics
	logger  *zap.Logger
}

func NewRabbitMQPublisher(url string, metrics *observability.Metrics, logger *zap.Logger) (*RabbitMQPublisher, error) {
	return newRabbitMQPublisher(url, dialBroker, metrics, logger)
}

func newRabbitMQPublisher(url string, dial Dialer, metrics *observability.Metrics, logger *zap.Logger) (*RabbitMQPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}
	if dial == nil {
		return nil, fmt.Errorf("dialer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RabbitMQPublisher{
		url:     url,
		dial:    dial,
		metrics: metrics,
		logger:  logger,
	}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, queue string, msg RecordMessage) (err error) {
	if p == nil || p.dial == nil {
		return fmt.Errorf("publisher is not initialized")
	}
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}

	defer func() {
		p.metrics.IncQueuePublish(queue, err == nil)
	}()

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal record message: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		MessageId:     msg.ID,
		CorrelationId: msg.CorrelationID,
		Body:          payload,
	}

	err = scoped.Use(ctx, p.connect, func(ctx context.Context, conn amqpConnection) error {
		return scoped.Use(ctx, openChannel(conn), func(ctx context.Context, ch amqpChannel) error {
			return publishInTx(ctx, ch, queue, publishing)
		})
	})
	if err != nil {
		return err
	}

	p.logger.Debug("record message published",
		zap.String("queue", queue),
		zap.String("recordId", msg.ID),
	)
	return nil
}

func (p *RabbitMQPublisher) connect(ctx context.Context) (amqpConnection, scoped.Release, error) {
	conn, err := p.dial(ctx, p.url)
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Close, nil
}

func openChannel(conn amqpConnection) scoped.Acquire[amqpChannel] {
	return func(ctx context.Context) (amqpChannel, scoped.Release, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
		}
		return ch, ch.Close, nil
	}
}

func publishInTx(ctx context.Context, ch amqpChannel, queue string, publishing amqp.Publishing) error {
	if err := declareTopology(ch, queue); err != nil {
		return err
	}
	if err := ch.Tx(); err != nil {
		return fmt.Errorf("failed to start rabbitmq transaction: %w", err)
	}

	if err := ch.PublishWithContext(ctx, "", queue, false, false, publishing); err != nil {
		return errors.Join(
			fmt.Errorf("failed to publish message to queue %q: %w", queue, err),
			ch.TxRollback(),
		)
	}

	if err := ch.TxCommit(); err != nil {
		return fmt.Errorf("failed to commit message to queue %q: %w", queue, err)
	}

	return nil
}
