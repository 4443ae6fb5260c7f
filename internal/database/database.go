// Package database provides PostgreSQL and Redis connection management.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/config"
)

const connectAttempts = 5

// NewPool creates and validates a pgxpool connection pool.
// It retries a few times to accommodate containers starting up.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log logrus.FieldLogger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = config.MinDBConns
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		log.WithError(err).WithField("attempt", attempt).Warn("db connect failed, retrying in 2s")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	date        DATE NOT NULL,
	start_time  TIME,
	location    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ticket_tiers (
	id       TEXT PRIMARY KEY,
	event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	price    NUMERIC(10, 2) NOT NULL CHECK (price >= 0),
	capacity INTEGER NOT NULL CHECK (capacity >= 0),
	sold     INTEGER NOT NULL DEFAULT 0 CHECK (sold >= 0 AND sold <= capacity),
	UNIQUE (event_id, name)
);

CREATE TABLE IF NOT EXISTS tickets (
	id           TEXT PRIMARY KEY,
	code         TEXT NOT NULL UNIQUE,
	event_id     TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	user_id      TEXT,
	email        TEXT NOT NULL,
	holder_name  TEXT NOT NULL DEFAULT '',
	tier_id      TEXT REFERENCES ticket_tiers(id) ON DELETE SET NULL,
	quantity     INTEGER NOT NULL CHECK (quantity >= 1),
	total_amount NUMERIC(10, 2) NOT NULL,
	qr_image     BYTEA,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS tickets_event_id_idx ON tickets (event_id);

CREATE TABLE IF NOT EXISTS certificates (
	ticket_id  TEXT PRIMARY KEY REFERENCES tickets(id) ON DELETE CASCADE,
	filename   TEXT NOT NULL,
	content    BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS rsvps (
	user_id    TEXT NOT NULL,
	event_id   TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	status     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, event_id)
);
`
