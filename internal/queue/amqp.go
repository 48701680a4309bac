package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// AMQPQueue implements Queue on a RabbitMQ channel. Every topic maps to a durable
// queue of the same name on the default exchange.
type AMQPQueue struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *zap.Logger

	// amqp.Channel is not safe for concurrent publishing.
	mu       sync.Mutex
	declared map[string]bool
}

func DialAMQP(url string, logger *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &AMQPQueue{
		conn:     conn,
		ch:       ch,
		logger:   logger,
		declared: make(map[string]bool),
	}, nil
}

// declare must be called with q.mu held.
func (q *AMQPQueue) declare(topic string) error {
	if q.declared[topic] {
		return nil
	}
	_, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

// Publish encodes payload as JSON and publishes it persistently.
func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.declare(topic); err != nil {
		return err
	}

	return q.ch.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Subscribe consumes topic with manual acks. The handler receives the raw body.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	err := q.declare(topic)
	var msgs <-chan amqp.Delivery
	if err == nil {
		msgs, err = q.ch.Consume(
			topic,
			"",
			false, // autoAck = false for reliability
			false,
			false,
			false,
			nil,
		)
	}
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("consume %s: %w", topic, err)
	}

	go func() {
		for d := range msgs {
			q.handleDelivery(d, handler)
		}
		q.logger.Info("consumer stopped", zap.String("topic", topic))
	}()

	return nil
}

// handleDelivery acks on success. A failed delivery is requeued once; a failed
// redelivery is dropped.
func (q *AMQPQueue) handleDelivery(d amqp.Delivery, handler func(payload any) error) {
	err := handler(d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			q.logger.Error("ack failed", zap.Error(ackErr))
		}
		return
	}

	requeue := !d.Redelivered
	q.logger.Warn("message handling failed",
		zap.String("routing_key", d.RoutingKey),
		zap.Bool("requeue", requeue),
		zap.Error(err),
	)
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		q.logger.Error("nack failed", zap.Error(nackErr))
	}
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
var _ Queue = (*InMemoryQueue)(nil)
