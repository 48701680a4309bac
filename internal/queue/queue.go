package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/unclebandit/customer-service/internal/model"
)

// CustomerEventsTopic carries model.CustomerEvent payloads.
const CustomerEventsTopic = "customer_events"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue delivers each published payload to every subscriber on its own
// goroutine, retrying a failing handler with linear backoff.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]func(payload any) error
	logger     *zap.Logger
	maxRetries int
	backoff    time.Duration
}

// InMemoryOption configures an InMemoryQueue.
type InMemoryOption func(*InMemoryQueue)

func WithMaxRetries(n int) InMemoryOption {
	return func(q *InMemoryQueue) { q.maxRetries = n }
}

func WithBackoff(d time.Duration) InMemoryOption {
	return func(q *InMemoryQueue) { q.backoff = d }
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(logger *zap.Logger, opts ...InMemoryOption) *InMemoryQueue {
	q := &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		logger:     logger,
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		go q.processJob(handler, JobPayload{
			Topic:      topic,
			Payload:    payload,
			MaxRetries: q.maxRetries,
		})
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	for {
		err := handler(job.Payload)
		if err == nil {
			return
		}

		job.RetryCount++
		if job.RetryCount > job.MaxRetries {
			q.logger.Error("job permanently failed",
				zap.String("topic", job.Topic),
				zap.Int("attempts", job.RetryCount),
				zap.Error(err),
			)
			return
		}

		q.logger.Warn("job failed, retrying",
			zap.String("topic", job.Topic),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)
		time.Sleep(time.Duration(job.RetryCount) * q.backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// DecodeCustomerEvent accepts the forms a customer event travels in: the value
// itself from the in-memory queue, or a JSON body from a broker.
func DecodeCustomerEvent(payload any) (model.CustomerEvent, error) {
	switch p := payload.(type) {
	case model.CustomerEvent:
		return p, nil
	case *model.CustomerEvent:
		if p == nil {
			return model.CustomerEvent{}, fmt.Errorf("nil customer event")
		}
		return *p, nil
	case []byte:
		var event model.CustomerEvent
		if err := json.Unmarshal(p, &event); err != nil {
			return model.CustomerEvent{}, fmt.Errorf("decode customer event: %w", err)
		}
		return event, nil
	default:
		return model.CustomerEvent{}, fmt.Errorf("unexpected customer event payload %T", payload)
	}
}

// HandleCustomerEvent logs one customer event. Malformed payloads are logged and
// dropped rather than retried.
func HandleCustomerEvent(logger *zap.Logger) func(payload any) error {
	return func(payload any) error {
		event, err := DecodeCustomerEvent(payload)
		if err != nil {
			logger.Warn("dropping malformed customer event", zap.Error(err))
			return nil
		}

		logger.Info("customer event",
			zap.String("type", string(event.Type)),
			zap.String("customer_id", event.CustomerID),
			zap.Time("occurred_at", event.OccurredAt),
		)
		return nil
	}
}

// StartCustomerEventLogger subscribes HandleCustomerEvent to CustomerEventsTopic.
func StartCustomerEventLogger(q Queue, logger *zap.Logger) error {
	if err := q.Subscribe(CustomerEventsTopic, HandleCustomerEvent(logger)); err != nil {
		return fmt.Errorf("subscribe to %s: %w", CustomerEventsTopic, err)
	}
	return nil
}
