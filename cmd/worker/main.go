package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/customer-service/internal/config"
	"github.com/unclebandit/customer-service/internal/logger"
	"github.com/unclebandit/customer-service/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	// Connect to RabbitMQ
	q, err := queue.DialAMQP(cfg.Queue.AMQPURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer q.Close()

	if err := start(q, zapLogger); err != nil {
		zapLogger.Fatal("failed to register consumer", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("worker running, waiting for customer events", zap.String("topic", queue.CustomerEventsTopic))
	<-ctx.Done()
	zapLogger.Info("worker stopping")
}

// start subscribes the customer event logger on q. Deliveries are handled on the
// queue's own goroutines.
func start(q queue.Queue, log *zap.Logger) error {
	return queue.StartCustomerEventLogger(q, log.Named("customer_events"))
}
