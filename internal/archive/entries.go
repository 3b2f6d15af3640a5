// Package archive keeps long-term, PII-scrubbed copies of conversations:
// every committed entry in Postgres and a full transcript in S3 when a
// session ends.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/triage-concierge/internal/chat"
)

// EntryStore appends conversation entries to conversation_entries.
type EntryStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewEntryStore returns nil when db is nil so callers can treat a missing
// database as archiving disabled.
func NewEntryStore(db *sql.DB) *EntryStore {
	if db == nil {
		return nil
	}
	return &EntryStore{db: db, now: time.Now}
}

// Append writes entries in one transaction. Content and metadata are
// scrubbed first.
func (s *EntryStore) Append(ctx context.Context, sessionID string, entries []chat.Entry) error {
	if s == nil || len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO conversation_entries (id, session_id, role, type, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, e := range entries {
		md := "{}"
		if scrubbed := scrubMetadata(e.Metadata); scrubbed != nil {
			raw, err := json.Marshal(scrubbed)
			if err != nil {
				return fmt.Errorf("archive: marshal metadata: %w", err)
			}
			md = string(raw)
		}
		at := e.Timestamp
		if at.IsZero() {
			at = s.now().UTC()
		}
		if _, err := tx.ExecContext(ctx, query,
			uuid.New(), sessionID, string(e.Role), string(e.Type), ScrubPII(e.Content), md, at,
		); err != nil {
			return fmt.Errorf("archive: insert entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// CountForSession returns how many entries are archived for a session.
func (s *EntryStore) CountForSession(ctx context.Context, sessionID string) (int, error) {
	if s == nil {
		return 0, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversation_entries WHERE session_id = $1`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("archive: count entries: %w", err)
	}
	return n, nil
}
