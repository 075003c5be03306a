package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:fise.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/fise?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  class_label TEXT NOT NULL DEFAULT '',
  access_code TEXT NOT NULL UNIQUE,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS worksheets (
  id TEXT PRIMARY KEY,
  subject TEXT NOT NULL,
  grade TEXT NOT NULL,
  topic TEXT NOT NULL,
  title TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  steps_json TEXT NOT NULL,
  max_attempts INTEGER NOT NULL DEFAULT 1,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_visible INTEGER NOT NULL DEFAULT 1,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS worksheet_attempts (
  student_id TEXT NOT NULL REFERENCES students(id),
  worksheet_id TEXT NOT NULL REFERENCES worksheets(id),
  attempt_number INTEGER NOT NULL,
  completed INTEGER NOT NULL DEFAULT 0,
  total_score REAL NOT NULL DEFAULT 0,
  completed_at INTEGER,
  global_feedback TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  PRIMARY KEY (student_id, worksheet_id, attempt_number)
);

CREATE TABLE IF NOT EXISTS student_progress (
  student_id TEXT NOT NULL,
  worksheet_id TEXT NOT NULL,
  attempt_number INTEGER NOT NULL,
  step_position INTEGER NOT NULL,
  answer_json TEXT NOT NULL,
  feedback TEXT NOT NULL DEFAULT '',
  score REAL NOT NULL DEFAULT 0,
  completed_at INTEGER NOT NULL,
  PRIMARY KEY (student_id, worksheet_id, attempt_number, step_position)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  typ TEXT NOT NULL,                     -- e.g., StepSubmitted
  attempt_key TEXT NOT NULL,             -- student|worksheet|attempt
  data TEXT NOT NULL,                    -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  class_label TEXT NOT NULL DEFAULT '',
  access_code TEXT NOT NULL UNIQUE,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS worksheets (
  id TEXT PRIMARY KEY,
  subject TEXT NOT NULL,
  grade TEXT NOT NULL,
  topic TEXT NOT NULL,
  title TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  steps_json TEXT NOT NULL,
  max_attempts INTEGER NOT NULL DEFAULT 1,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  is_visible BOOLEAN NOT NULL DEFAULT TRUE,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS worksheet_attempts (
  student_id TEXT NOT NULL REFERENCES students(id),
  worksheet_id TEXT NOT NULL REFERENCES worksheets(id),
  attempt_number INTEGER NOT NULL,
  completed BOOLEAN NOT NULL DEFAULT FALSE,
  total_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  completed_at BIGINT,
  global_feedback TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL,
  PRIMARY KEY (student_id, worksheet_id, attempt_number)
);

CREATE TABLE IF NOT EXISTS student_progress (
  student_id TEXT NOT NULL,
  worksheet_id TEXT NOT NULL,
  attempt_number INTEGER NOT NULL,
  step_position INTEGER NOT NULL,
  answer_json TEXT NOT NULL,
  feedback TEXT NOT NULL DEFAULT '',
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  completed_at BIGINT NOT NULL,
  PRIMARY KEY (student_id, worksheet_id, attempt_number, step_position)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  attempt_key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
