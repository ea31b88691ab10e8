package services

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recovery event types written to recovery_events.
const (
	EventCheck = "check"
	EventForce = "force"
	EventClear = "clear"
)

// RecoveryEvent is one row of the recovery audit log.
type RecoveryEvent struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Type        string    `json:"event_type"`
	Identity    string    `json:"identity"`
	Fingerprint string    `json:"fingerprint"`
	Recovered   bool      `json:"recovered"`
	Error       string    `json:"error,omitempty"`
}

// RecoveryAudit records what the recovery controller did.
type RecoveryAudit interface {
	Record(ctx context.Context, ev RecoveryEvent)
	Recent(ctx context.Context, limit int) ([]RecoveryEvent, error)
}

// PostgresRecoveryAudit writes events to the recovery_events table.
type PostgresRecoveryAudit struct {
	db *sql.DB
}

func NewPostgresRecoveryAudit(db *sql.DB) *PostgresRecoveryAudit {
	return &PostgresRecoveryAudit{db: db}
}

// Record inserts the event. Failures are only logged.
func (a *PostgresRecoveryAudit) Record(ctx context.Context, ev RecoveryEvent) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO recovery_events (id, event_type, identity, fingerprint, recovered, error)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ev.ID, ev.Type, ev.Identity, ev.Fingerprint, ev.Recovered, ev.Error)
	if err != nil {
		log.Printf("audit: failed to record %s event: %v", ev.Type, err)
	}
}

// Recent returns the newest events first.
func (a *PostgresRecoveryAudit) Recent(ctx context.Context, limit int) ([]RecoveryEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, created_at, event_type, identity, fingerprint, recovered, error
		FROM recovery_events
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []RecoveryEvent
	for rows.Next() {
		var ev RecoveryEvent
		var errText sql.NullString
		if err := rows.Scan(&ev.ID, &ev.CreatedAt, &ev.Type, &ev.Identity, &ev.Fingerprint, &ev.Recovered, &errText); err != nil {
			return nil, err
		}
		ev.Error = errText.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MemoryRecoveryAudit keeps events in memory, used when no Postgres is
// configured.
type MemoryRecoveryAudit struct {
	mu     sync.Mutex
	events []RecoveryEvent
}

func NewMemoryRecoveryAudit() *MemoryRecoveryAudit {
	return &MemoryRecoveryAudit{}
}

func (a *MemoryRecoveryAudit) Record(ctx context.Context, ev RecoveryEvent) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	a.mu.Lock()
	a.events = append(a.events, ev)
	a.mu.Unlock()
}

func (a *MemoryRecoveryAudit) Recent(ctx context.Context, limit int) ([]RecoveryEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]RecoveryEvent, 0, len(a.events))
	for i := len(a.events) - 1; i >= 0; i-- {
		out = append(out, a.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
