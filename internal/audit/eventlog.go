// Package audit appends domain events to the append-only event_log
// table. Writes are best-effort: callers log failures and move on.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	EventStepSubmitted    = "StepSubmitted"
	EventAttemptCompleted = "AttemptCompleted"
	EventOracleFailed     = "OracleFailed"
)

type Logger interface {
	Append(ctx context.Context, typ, key string, data any) error
}

type EventLog struct{ db *sql.DB }

func NewEventLog(db *sql.DB) *EventLog { return &EventLog{db: db} }

func (l *EventLog) Append(ctx context.Context, typ, key string, data any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, attempt_key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, string(buf), time.Now().Unix())
	return err
}

// Nop discards events; used by tests and the in-memory store.
type Nop struct{}

func (Nop) Append(context.Context, string, string, any) error { return nil }
