package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Confirmation is a booking the backend already accepted for a form.
type Confirmation struct {
	SessionID   string          `json:"session_id"`
	FormID      string          `json:"form_id"`
	Kind        string          `json:"kind"`
	ReferenceID string          `json:"reference_id"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Ledger remembers confirmations so a re-submitted form is not posted twice.
// Lookup returns nil, nil when nothing is recorded.
type Ledger interface {
	Lookup(ctx context.Context, sessionID, formID string) (*Confirmation, error)
	Record(ctx context.Context, c Confirmation) error
}

// MemoryLedger keeps confirmations in process.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]Confirmation
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]Confirmation)}
}

func (l *MemoryLedger) Lookup(ctx context.Context, sessionID, formID string) (*Confirmation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.entries[sessionID+"/"+formID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (l *MemoryLedger) Record(ctx context.Context, c Confirmation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := c.SessionID + "/" + c.FormID
	if _, exists := l.entries[key]; exists {
		return nil
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	l.entries[key] = c
	return nil
}

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger stores confirmations in booking_ledger.
type PostgresLedger struct {
	pool rowQuerier
}

// NewPostgresLedger creates a ledger on the pool.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &PostgresLedger{pool: pool}
}

func newPostgresLedgerWithExec(exec rowQuerier) *PostgresLedger {
	if exec == nil {
		panic("booking: exec required")
	}
	return &PostgresLedger{pool: exec}
}

func (l *PostgresLedger) Lookup(ctx context.Context, sessionID, formID string) (*Confirmation, error) {
	query := `
		SELECT kind, reference_id, payload, created_at
		FROM booking_ledger
		WHERE session_id = $1 AND form_id = $2
	`
	c := Confirmation{SessionID: sessionID, FormID: formID}
	var payload []byte
	err := l.pool.QueryRow(ctx, query, sessionID, formID).Scan(&c.Kind, &c.ReferenceID, &payload, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("booking: ledger lookup: %w", err)
	}
	c.Payload = payload
	return &c, nil
}

func (l *PostgresLedger) Record(ctx context.Context, c Confirmation) error {
	query := `
		INSERT INTO booking_ledger (session_id, form_id, kind, reference_id, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, form_id) DO NOTHING
	`
	if _, err := l.pool.Exec(ctx, query, c.SessionID, c.FormID, c.Kind, c.ReferenceID, []byte(c.Payload)); err != nil {
		return fmt.Errorf("booking: ledger record: %w", err)
	}
	return nil
}
