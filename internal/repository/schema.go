package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS travel_plans (
	id            TEXT PRIMARY KEY,
	owner_user_id TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	destination   TEXT NOT NULL,
	start_date    TIMESTAMPTZ NOT NULL,
	end_date      TIMESTAMPTZ NOT NULL,
	budget        DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (budget >= 0),
	travel_type   TEXT NOT NULL DEFAULT '',
	visibility    TEXT NOT NULL DEFAULT 'public',
	status        TEXT NOT NULL DEFAULT 'upcoming',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at  TIMESTAMPTZ,
	CHECK (start_date <= end_date)
);
CREATE INDEX IF NOT EXISTS travel_plans_discoverable_idx
	ON travel_plans (created_at DESC, id DESC) WHERE visibility = 'public' AND status <> 'completed';

CREATE TABLE IF NOT EXISTS connection_requests (
	id               TEXT PRIMARY KEY,
	sender_user_id   TEXT NOT NULL,
	receiver_user_id TEXT NOT NULL,
	related_plan_id  TEXT REFERENCES travel_plans (id),
	status           TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	removed_at       TIMESTAMPTZ,
	CHECK (sender_user_id <> receiver_user_id)
);
CREATE UNIQUE INDEX IF NOT EXISTS connection_requests_active_pair_idx
	ON connection_requests (LEAST(sender_user_id, receiver_user_id), GREATEST(sender_user_id, receiver_user_id))
	WHERE status IN ('PENDING', 'ACCEPTED') AND removed_at IS NULL;

CREATE TABLE IF NOT EXISTS reviews (
	id             TEXT PRIMARY KEY,
	travel_plan_id TEXT NOT NULL REFERENCES travel_plans (id),
	author_user_id TEXT NOT NULL,
	rating         INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
	content        TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (travel_plan_id, author_user_id)
);
`

// Migrate creates the tables the repositories rely on. It is safe to run on every start.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
