package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink persists analyzed reports to a scam_logs table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects and ensures the schema exists.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresSink{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `CREATE TABLE IF NOT EXISTS scam_logs (
		id BIGSERIAL PRIMARY KEY,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		county TEXT NOT NULL,
		user_input TEXT NOT NULL,
		scam_type TEXT NOT NULL
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure scam_logs schema: %w", err)
	}
	return nil
}

// Record inserts one row. Failures are logged and reported, never raised.
func (s *PostgresSink) Record(ctx context.Context, rawInput, scamType, region string) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scam_logs (county, user_input, scam_type) VALUES ($1, $2, $3)`,
		region, rawInput, scamType,
	)
	if err != nil {
		log.Printf("[Storage] postgres insert failed: %v", err)
		return false
	}
	return true
}

// Close releases the pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
