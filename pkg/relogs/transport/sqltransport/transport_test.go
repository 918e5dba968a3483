package sqltransport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SebastienMelki/relogs/internal/sqlstore"
)

func TestSend_SQLite(t *testing.T) {
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Dialect:      sqlstore.DialectSQLite,
		Path:         filepath.Join(t.TempDir(), "relogs.db"),
		MaxOpenConns: 1,
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	transport := New(store, nil)

	batch := []any{
		map[string]any{"severity": "Info", "trace": "hello"},
		map[string]any{"severity": "Error", "trace": "boom"},
	}
	if status, err := transport.Send(ctx, "logs", batch); status != 0 || err != nil {
		t.Fatalf("Send() = %d, %v", status, err)
	}
	if status, err := transport.Send(ctx, "logs", batch[:1]); status != 0 || err != nil {
		t.Fatalf("Send() = %d, %v", status, err)
	}

	n, err := store.Count(ctx, "logs")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}

	var payload string
	err = store.DB().QueryRowContext(ctx, `SELECT payload FROM "logs" WHERE seq = 1`).Scan(&payload)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if payload != `{"severity":"Error","trace":"boom"}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestSend_UnencodablePayload(t *testing.T) {
	transport := New(nil, nil)

	status, err := transport.Send(context.Background(), "t", []any{make(chan int)})
	if err == nil || status != StatusFailed {
		t.Errorf("Send() = %d, %v", status, err)
	}
}
