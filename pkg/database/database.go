// Package database opens the PostgreSQL pool through the pgx stdlib driver
// and ties its readiness and shutdown to the process lifecycle.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/vitalis/pkg/lifecycle"
)

// System owns the PostgreSQL pool.
type System interface {
	Connection() *sql.DB
	Start(lc *lifecycle.Coordinator) error
	// Ping reports ErrNotReady when the server cannot be reached.
	Ping(ctx context.Context) error
}

const startupAttempts = 5

type database struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
}

// New configures the pool. No connection is made until Start or Ping.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		logger:      logger.With("system", "database"),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.connTimeout)
	defer cancel()

	if err := d.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	return nil
}

// Start pings the server until it answers or startupAttempts run out, and
// closes the pool once shutdown begins.
func (d *database) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		attempts := 0
		_, err := backoff.Retry(lc.Context(), func() (struct{}, error) {
			attempts++
			return struct{}{}, d.Ping(lc.Context())
		},
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxTries(startupAttempts),
		)
		if err != nil {
			d.logger.Error("database unreachable", "attempts", attempts, "error", err)
			return
		}
		d.logger.Info("database connected", "attempts", attempts)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		stats := d.conn.Stats()
		if err := d.conn.Close(); err != nil {
			d.logger.Error("close database", "error", err)
			return
		}
		d.logger.Info("database closed", "open", stats.OpenConnections, "wait_count", stats.WaitCount)
	})

	return nil
}
