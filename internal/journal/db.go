package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — таблица журнала.
const schema = `
	CREATE TABLE IF NOT EXISTS robot_invocations (
		id           uuid PRIMARY KEY,
		robot        text        NOT NULL,
		domain       text        NOT NULL,
		task_id      integer,
		entity_type  text,
		entity_id    integer,
		success      boolean     NOT NULL,
		status_code  integer     NOT NULL,
		message      text,
		file_ids     text[]      NOT NULL DEFAULT '{}',
		callback     text,
		received_at  timestamptz NOT NULL,
		duration_ms  bigint      NOT NULL
	);
	CREATE INDEX IF NOT EXISTS robot_invocations_received_at_idx ON robot_invocations (received_at);
	CREATE INDEX IF NOT EXISTS robot_invocations_domain_idx ON robot_invocations (domain, received_at DESC);
`

// NewPool подключается к PostgreSQL по DSN.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// EnsureSchema создаёт таблицу журнала, если её нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
