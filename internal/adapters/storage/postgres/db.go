package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schema = `
CREATE TABLE IF NOT EXISTS dose_events (
	seq      BIGSERIAL PRIMARY KEY,
	id       UUID NOT NULL UNIQUE,
	name     TEXT NOT NULL,
	taken_at TIMESTAMPTZ NOT NULL,
	date     TEXT NOT NULL,
	time     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dose_events_name_taken ON dose_events (name, taken_at);
`

// Open abre una conexión pool a Postgres usando pgx (database/sql).
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	// un solo usuario: pool chico
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema crea la tabla dose_events si no existe.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
