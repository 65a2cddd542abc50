package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds connection parameters for the durable backend,
// trimmed to what a generic KV table needs (no block/chain-specific fields).
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultPostgresConfig returns sane local-development connection defaults.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "engine",
		Password: "",
		Database: "engine",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

// PostgresBackend is the durable Database implementation: a single
// kv_store(key TEXT PRIMARY KEY, value BYTEA) table accessed through pgx,
// generalized from block/transaction-specific columns to a generic
// key/value contract.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend connects to cfg and verifies the connection.
func NewPostgresBackend(ctx context.Context, cfg PostgresConfig) (*PostgresBackend, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("storage: postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: postgres ping: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (b *PostgresBackend) Get(ctx context.Context, k string) ([]byte, bool, error) {
	var v []byte
	err := b.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, k).Scan(&v)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: postgres get: %w", err)
	}
	return v, true, nil
}

func (b *PostgresBackend) Put(ctx context.Context, k string, v []byte) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO kv_store (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2
	`, k, v)
	if err != nil {
		return fmt.Errorf("storage: postgres put: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Batch(ctx context.Context, ops []Op) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: postgres batch begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, op := range ops {
		switch op.Type {
		case OpPut:
			if _, err := tx.Exec(ctx, `
				INSERT INTO kv_store (key, value) VALUES ($1, $2)
				ON CONFLICT (key) DO UPDATE SET value = $2
			`, op.Key, op.Value); err != nil {
				return fmt.Errorf("storage: postgres batch put %q: %w", op.Key, err)
			}
		case OpDelete:
			if _, err := tx.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, op.Key); err != nil {
				return fmt.Errorf("storage: postgres batch delete %q: %w", op.Key, err)
			}
		}
	}
	return tx.Commit(ctx)
}

func (b *PostgresBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.pool.Query(ctx, `SELECT key FROM kv_store WHERE key LIKE $1`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("storage: postgres keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

// Schema is the DDL a deployment applies once before using PostgresBackend.
const Schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key   TEXT PRIMARY KEY,
	value BYTEA NOT NULL
);
`
