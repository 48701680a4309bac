// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.nhat.io/otelsql"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/unclebandit/customer-service/internal/config"
)

const pingTimeout = 5 * time.Second

// Open connects to Postgres through an otelsql-wrapped lib/pq driver, applies the
// pool settings and checks the connection before returning.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*sql.DB, error) {
	driverName, err := otelsql.Register("postgres",
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithDatabaseName(cfg.Name),
		otelsql.WithSystem(attribute.String("db.system", "postgresql")),
	)
	if err != nil {
		return nil, fmt.Errorf("register postgres driver: %w", err)
	}

	conn, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := otelsql.RecordStats(conn,
		otelsql.WithDatabaseName(cfg.Name),
		otelsql.WithSystem(attribute.String("db.system", "postgresql")),
	); err != nil {
		logger.Warn("database stats disabled", zap.Error(err))
	}

	logger.Info("connected to database",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
		zap.String("user", cfg.User),
	)

	return conn, nil
}

// Migrate applies every pending migration found at source (for example
// "file://migrations") on its own connection to dsn. An up-to-date schema is not
// an error.
func Migrate(source, dsn string, logger *zap.Logger) (err error) {
	m, err := migrate.New(source, dsn)
	if err != nil {
		return fmt.Errorf("load migrations from %s: %w", source, err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil {
			err = errors.Join(srcErr, dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	logger.Info("database schema ready", zap.Uint("version", version), zap.Bool("dirty", dirty))

	return nil
}
