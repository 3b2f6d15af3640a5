package booking

import (
	"context"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresLedger(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	ledger := newPostgresLedgerWithExec(mock)

	mock.ExpectQuery("SELECT kind, reference_id, payload, created_at").
		WithArgs("sess-1", "form-miss").
		WillReturnError(pgx.ErrNoRows)
	c, err := ledger.Lookup(context.Background(), "sess-1", "form-miss")
	if err != nil || c != nil {
		t.Fatalf("expected no confirmation, got %#v err=%v", c, err)
	}

	mock.ExpectExec("INSERT INTO booking_ledger").
		WithArgs("sess-1", "form-1", "appointment", "apt-1", []byte(`{"id":"apt-1"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := ledger.Record(context.Background(), Confirmation{
		SessionID:   "sess-1",
		FormID:      "form-1",
		Kind:        "appointment",
		ReferenceID: "apt-1",
		Payload:     []byte(`{"id":"apt-1"}`),
	}); err != nil {
		t.Fatalf("record returned error: %v", err)
	}

	created := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT kind, reference_id, payload, created_at").
		WithArgs("sess-1", "form-1").
		WillReturnRows(pgxmock.NewRows([]string{"kind", "reference_id", "payload", "created_at"}).
			AddRow("appointment", "apt-1", []byte(`{"id":"apt-1"}`), created))
	c, err = ledger.Lookup(context.Background(), "sess-1", "form-1")
	if err != nil {
		t.Fatalf("lookup returned error: %v", err)
	}
	if c == nil || c.ReferenceID != "apt-1" || string(c.Payload) != `{"id":"apt-1"}` {
		t.Fatalf("unexpected confirmation %#v", c)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMemoryLedgerKeepsFirstConfirmation(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	_ = ledger.Record(ctx, Confirmation{SessionID: "s", FormID: "f", ReferenceID: "first"})
	_ = ledger.Record(ctx, Confirmation{SessionID: "s", FormID: "f", ReferenceID: "second"})

	c, _ := ledger.Lookup(ctx, "s", "f")
	if c == nil || c.ReferenceID != "first" {
		t.Fatalf("expected first confirmation kept, got %#v", c)
	}
	if other, _ := ledger.Lookup(ctx, "other", "f"); other != nil {
		t.Fatalf("expected sessions isolated, got %#v", other)
	}
}
