// Package postgres implements the records contracts over PostgreSQL, the
// relational store the surrounding student-information system writes to.
// The scorer only reads student history here and appends assessment rows.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrConnectionClosed indicates the connection pool is closed.
var ErrConnectionClosed = errors.New("postgres: connection pool is closed")

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host              string
	Port              int
	Database          string
	User              string
	Password          string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

// DefaultConfig returns sensible pool defaults.
func DefaultConfig() Config {
	return Config{
		Port:              5432,
		Database:          "edurisk",
		User:              "postgres",
		SSLMode:           "disable",
		MaxConns:          10,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    10 * time.Second,
	}
}

// DSN returns the connection string for PostgreSQL.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode,
		int(c.ConnectTimeout.Seconds()),
	)
}

// Connection wraps a pgx connection pool.
type Connection struct {
	pool   *pgxpool.Pool
	closed bool
}

// Connect creates a connection pool from a DSN and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Connection{pool: pool}, nil
}

// ConnectWithConfig creates a connection pool from a Config.
func ConnectWithConfig(ctx context.Context, cfg Config) (*Connection, error) {
	conn, err := Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	conn.pool.Config().MaxConns = cfg.MaxConns
	return conn, nil
}

// Close closes the pool.
func (c *Connection) Close() {
	if c.pool != nil && !c.closed {
		c.pool.Close()
		c.closed = true
	}
}

// QueryRow runs a single-row query.
func (c *Connection) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.pool.QueryRow(ctx, sql, args...)
}

// Query runs a multi-row query.
func (c *Connection) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if c.closed {
		return nil, ErrConnectionClosed
	}
	return c.pool.Query(ctx, sql, args...)
}

// Exec runs a statement.
func (c *Connection) Exec(ctx context.Context, sql string, args ...any) error {
	if c.closed {
		return ErrConnectionClosed
	}
	_, err := c.pool.Exec(ctx, sql, args...)
	return err
}
