// Package postgres implements the storage ports on PostgreSQL via sqlx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens a pooled sqlx connection and verifies it with a ping.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(100)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables the core reads and writes. Idempotent;
// meant for dev and test environments, production uses migrations.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS profiles (
	id                  TEXT PRIMARY KEY,
	user_id             TEXT NOT NULL UNIQUE,
	is_active           BOOLEAN NOT NULL DEFAULT TRUE,
	gender              TEXT NOT NULL DEFAULT '',
	gender_preference   TEXT NOT NULL DEFAULT 'any',
	timezone            TEXT NOT NULL DEFAULT '',
	timezone_preference TEXT NOT NULL DEFAULT 'any_timezone',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS exclusions (
	user_id          TEXT NOT NULL,
	excluded_user_id TEXT NOT NULL,
	reason           TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (user_id, excluded_user_id)
);

CREATE TABLE IF NOT EXISTS partnerships (
	id         TEXT PRIMARY KEY,
	user1_id   TEXT NOT NULL,
	user2_id   TEXT NOT NULL,
	start_date TIMESTAMPTZ NOT NULL,
	end_date   TIMESTAMPTZ,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- One row per user holding an active partnership. The primary key is what
-- enforces the one-active-partnership invariant across both columns of
-- partnerships; rows are inserted and removed in the same transaction as
-- the partnership write.
CREATE TABLE IF NOT EXISTS active_partners (
	user_id        TEXT PRIMARY KEY,
	partnership_id TEXT NOT NULL REFERENCES partnerships(id)
);

CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	is_verified BOOLEAN NOT NULL DEFAULT FALSE,
	is_approved BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS payments (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	amount             NUMERIC(12,2) NOT NULL,
	payment_date       TIMESTAMPTZ NOT NULL,
	billing_period     TEXT NOT NULL,
	billing_month      TEXT,
	yearly_start_month TEXT,
	yearly_end_month   TEXT
);

CREATE TABLE IF NOT EXISTS login_events (
	user_id    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS login_events_created_at_idx ON login_events (created_at);

CREATE TABLE IF NOT EXISTS mood_checks (
	user_id    TEXT NOT NULL,
	mood_value INT NOT NULL,
	date       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS nps_responses (
	user_id    TEXT NOT NULL,
	score      INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS occupations (
	id                     TEXT PRIMARY KEY,
	sector                 TEXT NOT NULL,
	job_title_id           TEXT NOT NULL DEFAULT '',
	occupation_title       TEXT NOT NULL,
	headcount_target       INT NOT NULL DEFAULT 0,
	skill_level            TEXT NOT NULL DEFAULT '',
	annual_training_target INT NOT NULL DEFAULT 0,
	current_recruited      INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS candidate_profiles (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	skills     TEXT[] NOT NULL DEFAULT '{}',
	sectors    TEXT[] NOT NULL DEFAULT '{}',
	job_titles TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS job_title_skills (
	job_title_id TEXT NOT NULL,
	name         TEXT NOT NULL,
	PRIMARY KEY (job_title_id, name)
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}
