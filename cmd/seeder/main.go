//cmd/seeder/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/unclebandit/customer-service/internal/config"
	"github.com/unclebandit/customer-service/internal/db"
	"github.com/unclebandit/customer-service/internal/logger"
)

var seedFiles = []string{
	"seed/customers.sql",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if err := db.Migrate(cfg.Database.Migrations, cfg.Database.DSN(), zapLogger); err != nil {
		zapLogger.Fatal("migration failed", zap.Error(err))
	}

	conn, err := db.Open(context.Background(), cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("database unavailable", zap.Error(err))
	}
	defer conn.Close()

	if err := seed(context.Background(), conn, seedFiles, zapLogger); err != nil {
		zapLogger.Fatal("seeding failed", zap.Error(err))
	}

	zapLogger.Info("database seeding completed successfully")
}

func seed(ctx context.Context, conn *sql.DB, files []string, log *zap.Logger) error {
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}

		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute %s: %w", file, err)
		}
		log.Info("seeded", zap.String("file", file))
	}
	return nil
}
