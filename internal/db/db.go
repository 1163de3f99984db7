package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"warehouse-api/internal/config"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

const pingTimeout = 5 * time.Second

func InitDB(cfg *config.Config) *sql.DB {
	db, err := NewDatabase(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Println("Database connection established")
	return db
}

// NewDatabase opens a pool with the configured driver and pings it,
// retrying with exponential backoff up to cfg.DBPingRetries times.
func NewDatabase(cfg *config.Config) (*sql.DB, error) {
	driver := cfg.DBDriver
	if driver == "" {
		driver = "postgres"
	}
	return newDatabaseWithDriver(cfg, driver)
}

func newDatabaseWithDriver(cfg *config.Config, driverName string) (*sql.DB, error) {
	db, err := sql.Open(driverName, buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := pingWithRetry(db, cfg.DBPingRetries); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

func pingWithRetry(db *sql.DB, retries int) error {
	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		return db.PingContext(ctx)
	}

	if retries <= 0 {
		return ping()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	return backoff.RetryNotify(ping, backoff.WithMaxRetries(b, uint64(retries)),
		func(err error, next time.Duration) {
			log.Printf("DB not ready (%v), retrying in %s", err, next)
		})
}

func buildDSN(cfg *config.Config) string {
	if cfg.DBURL != "" {
		return cfg.DBURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)
}
