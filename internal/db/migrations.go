package db

import (
	"context"
	"database/sql"
	"fmt"
)

// sqliteMigrations is an ordered list of SQL statements for SQLite.
// Every statement is idempotent.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		full_name     TEXT    NOT NULL,
		address       TEXT    NOT NULL DEFAULT '',
		phone         TEXT    NOT NULL DEFAULT '',
		visit_weekday INTEGER NOT NULL CHECK (visit_weekday BETWEEN 1 AND 7),
		notes         TEXT,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT    NOT NULL,
		unit       TEXT    NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS visits (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id        INTEGER NOT NULL REFERENCES clients(id),
		visit_date       TEXT    NOT NULL,
		start_time       DATETIME,
		end_time         DATETIME,
		status           TEXT    NOT NULL DEFAULT 'pending',
		ph               REAL,
		chlorine         REAL,
		alkalinity       REAL,
		calcium_hardness REAL,
		cyanuric_acid    REAL,
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (client_id, visit_date)
	)`,
	`CREATE TABLE IF NOT EXISTS visit_applied_products (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		visit_id   INTEGER NOT NULL REFERENCES visits(id) ON DELETE CASCADE,
		product_id INTEGER NOT NULL REFERENCES products(id),
		quantity   REAL    NOT NULL CHECK (quantity > 0),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS visit_suggested_needs (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		visit_id        INTEGER NOT NULL REFERENCES visits(id) ON DELETE CASCADE,
		product_id      INTEGER NOT NULL REFERENCES products(id),
		quantity        REAL    NOT NULL CHECK (quantity > 0),
		approval_status TEXT    NOT NULL DEFAULT 'awaiting_approval',
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clients_weekday ON clients(visit_weekday)`,
	`CREATE INDEX IF NOT EXISTS idx_applied_products_visit ON visit_applied_products(visit_id)`,
	`CREATE INDEX IF NOT EXISTS idx_suggested_needs_visit ON visit_suggested_needs(visit_id)`,
}

// postgresMigrations mirrors sqliteMigrations for Postgres.
var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id            BIGSERIAL PRIMARY KEY,
		full_name     TEXT     NOT NULL,
		address       TEXT     NOT NULL DEFAULT '',
		phone         TEXT     NOT NULL DEFAULT '',
		visit_weekday SMALLINT NOT NULL CHECK (visit_weekday BETWEEN 1 AND 7),
		notes         TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT    NOT NULL,
		unit       TEXT    NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS visits (
		id               BIGSERIAL PRIMARY KEY,
		client_id        BIGINT NOT NULL REFERENCES clients(id),
		visit_date       DATE   NOT NULL,
		start_time       TIMESTAMPTZ,
		end_time         TIMESTAMPTZ,
		status           TEXT   NOT NULL DEFAULT 'pending',
		ph               DOUBLE PRECISION,
		chlorine         DOUBLE PRECISION,
		alkalinity       DOUBLE PRECISION,
		calcium_hardness DOUBLE PRECISION,
		cyanuric_acid    DOUBLE PRECISION,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (client_id, visit_date)
	)`,
	`CREATE TABLE IF NOT EXISTS visit_applied_products (
		id         BIGSERIAL PRIMARY KEY,
		visit_id   BIGINT NOT NULL REFERENCES visits(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity   DOUBLE PRECISION NOT NULL CHECK (quantity > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS visit_suggested_needs (
		id              BIGSERIAL PRIMARY KEY,
		visit_id        BIGINT NOT NULL REFERENCES visits(id) ON DELETE CASCADE,
		product_id      BIGINT NOT NULL REFERENCES products(id),
		quantity        DOUBLE PRECISION NOT NULL CHECK (quantity > 0),
		approval_status TEXT NOT NULL DEFAULT 'awaiting_approval',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clients_weekday ON clients(visit_weekday)`,
	`CREATE INDEX IF NOT EXISTS idx_applied_products_visit ON visit_applied_products(visit_id)`,
	`CREATE INDEX IF NOT EXISTS idx_suggested_needs_visit ON visit_suggested_needs(visit_id)`,
}

// migrate runs all migrations in order.
func migrate(ctx context.Context, db *sql.DB, migrations []string) error {
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
