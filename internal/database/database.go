// Package database wraps the pgx connection pool backing the paper store.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-enrichment-service/internal/config"
)

const (
	// HealthCheckTimeout bounds the ping issued by Health.
	HealthCheckTimeout = 5 * time.Second

	// ConnectAttempts is how often New pings before giving up. The server and the
	// worker are usually started alongside Postgres and may win the race.
	ConnectAttempts = 5

	connectBackoff = time.Second
)

// Health statuses. Saturated means every connection is checked out, so requests
// queue on the pool even though the database answers.
const (
	StatusHealthy   = "healthy"
	StatusSaturated = "saturated"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is served by the readiness endpoint.
type HealthStatus struct {
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	TotalConns    int32  `json:"total_conns"`
	AcquiredConns int32  `json:"acquired_conns"`
	IdleConns     int32  `json:"idle_conns"`
	MaxConns      int32  `json:"max_conns"`
}

// Ready reports whether the database can take requests.
func (h HealthStatus) Ready() bool {
	return h.Status != StatusUnhealthy
}

// DBTX is satisfied by *DB, *pgxpool.Pool and pgx.Tx, so repositories
// run unchanged inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DBTX = (*DB)(nil)

// DB is the shared connection pool.
type DB struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New creates the pool and pings it, retrying with a doubling delay up to
// ConnectAttempts times.
func New(ctx context.Context, cfg *config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	logger = logger.With().Str("component", "database").Logger()
	if err := pingWithRetry(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int32("max_conns", cfg.MaxConns).
		Msg("database connection pool established")

	return &DB{pool: pool, logger: logger}, nil
}

func pingWithRetry(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	delay := connectBackoff
	var err error
	for attempt := 1; attempt <= ConnectAttempts; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		if attempt == ConnectAttempts || ctx.Err() != nil {
			break
		}
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("database not reachable yet")

		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", errors.Join(err, ctx.Err()))
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("ping database: %w", err)
}

// Close closes the pool. It is safe on a DB without a pool.
func (db *DB) Close() {
	if db.pool == nil {
		return
	}
	db.pool.Close()
	db.logger.Info().Msg("database connection pool closed")
}

// Health reports pool statistics and the result of a bounded ping.
func (db *DB) Health(ctx context.Context) HealthStatus {
	stat := db.pool.Stat()
	health := HealthStatus{
		Status:        StatusHealthy,
		TotalConns:    stat.TotalConns(),
		AcquiredConns: stat.AcquiredConns(),
		IdleConns:     stat.IdleConns(),
		MaxConns:      stat.MaxConns(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	switch err := db.pool.Ping(pingCtx); {
	case err != nil:
		health.Status = StatusUnhealthy
		health.Error = err.Error()
	case health.MaxConns > 0 && health.AcquiredConns >= health.MaxConns:
		health.Status = StatusSaturated
	}
	return health
}

// WithTransaction runs fn in a transaction. It commits when fn returns nil and
// rolls back on an error or a panic, which is re-raised.
func (db *DB) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		p := recover()
		if p == nil && err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			db.logger.Error().Err(rbErr).AnErr("cause", err).Interface("panic", p).Msg("rollback failed")
		}
		if p != nil {
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (db *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return db.pool.Exec(ctx, sql, args...)
}

func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.pool.QueryRow(ctx, sql, args...)
}

func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return db.pool.Query(ctx, sql, args...)
}
