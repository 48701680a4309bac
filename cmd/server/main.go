// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.nhat.io/clock"
	"go.uber.org/zap"

	"github.com/unclebandit/customer-service/internal/config"
	"github.com/unclebandit/customer-service/internal/controller"
	"github.com/unclebandit/customer-service/internal/db"
	"github.com/unclebandit/customer-service/internal/handler"
	"github.com/unclebandit/customer-service/internal/logger"
	"github.com/unclebandit/customer-service/internal/queue"
	"github.com/unclebandit/customer-service/internal/repository"
	"github.com/unclebandit/customer-service/internal/service"
	"github.com/unclebandit/customer-service/internal/telemetry"
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

	if !cfg.DotEnvLoaded {
		zapLogger.Info("no .env file found, relying on OS environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	shutdownTelemetry, err := telemetry.Setup(telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	q, closeQueue, err := openQueue(cfg.Queue, log)
	if err != nil {
		return err
	}
	defer closeQueue()

	customerService := service.NewCustomerService(repo, q, log)
	customerController := controller.NewCustomerController(customerService, log)
	healthHandler := handler.NewHealthHandler(repo, log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           NewRouter(log, customerController, healthHandler),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server running",
			zap.String("addr", cfg.Server.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.String("queue", cfg.Queue.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.CustomerRepositoryInterface, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		return repository.NewMemoryCustomerRepository(), func() {}, nil
	}

	if err := db.Migrate(cfg.Database.Migrations, cfg.Database.DSN(), log); err != nil {
		return nil, nil, err
	}

	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if err := conn.Close(); err != nil {
			log.Warn("close database", zap.Error(err))
		}
	}
	return repository.NewCustomerRepository(conn, clock.New()), closeFn, nil
}

func openQueue(cfg config.QueueConfig, log *zap.Logger) (queue.Queue, func(), error) {
	switch cfg.Driver {
	case config.QueueDriverAMQP:
		q, err := queue.DialAMQP(cfg.AMQPURL, log)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := q.Close(); err != nil {
				log.Warn("close amqp", zap.Error(err))
			}
		}
		return q, closeFn, nil

	case config.QueueDriverMemory:
		q := queue.NewInMemoryQueue(log)
		if err := queue.StartCustomerEventLogger(q, log); err != nil {
			return nil, nil, err
		}
		return q, func() {}, nil

	default:
		return nil, func() {}, nil
	}
}
