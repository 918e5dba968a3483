package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T, prefix string) *Store {
	t.Helper()

	store, err := Open(context.Background(), Config{
		Dialect:      DialectSQLite,
		Path:         filepath.Join(t.TempDir(), "relogs.db"),
		TablePrefix:  prefix,
		MaxOpenConns: 1,
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"logs", "logs"},
		{"App.Logs", "app_logs"},
		{`x"; DROP TABLE y; --`, "x___drop_table_y____"},
		{"2024_events", "t_2024_events"},
		{"", "_default"},
	}

	for _, tt := range tests {
		if got := SanitizeIdentifier(tt.in); got != tt.want {
			t.Errorf("SanitizeIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := SanitizeIdentifier(string(make([]byte, 100)))
	if len(long) != maxIdentifierLen {
		t.Errorf("long identifier length = %d, want %d", len(long), maxIdentifierLen)
	}
}

func TestInsertBatch(t *testing.T) {
	store := openTestStore(t, "")
	ctx := context.Background()
	at := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

	payloads := [][]byte{[]byte(`{"n":1}`), []byte(`{"n":2}`), []byte(`{"n":3}`)}
	if err := store.InsertBatch(ctx, "app.logs", "batch-1", at, payloads); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	n, err := store.Count(ctx, "app.logs")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}

	rows, err := store.DB().QueryContext(ctx, `SELECT seq, payload, received_at FROM "app_logs" WHERE batch_id = ? ORDER BY seq`, "batch-1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	seq := 0
	for rows.Next() {
		var gotSeq int
		var payload string
		var receivedAt int64
		if err := rows.Scan(&gotSeq, &payload, &receivedAt); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if gotSeq != seq || payload != string(payloads[seq]) {
			t.Errorf("row %d = (%d, %s)", seq, gotSeq, payload)
		}
		if receivedAt != at.UnixMilli() {
			t.Errorf("received_at = %d, want %d", receivedAt, at.UnixMilli())
		}
		seq++
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
}

func TestInsertBatch_DuplicateBatchRollsBack(t *testing.T) {
	store := openTestStore(t, "")
	ctx := context.Background()

	if err := store.InsertBatch(ctx, "t", "b1", time.Now(), [][]byte{[]byte(`1`)}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	err := store.InsertBatch(ctx, "t", "b1", time.Now(), [][]byte{[]byte(`2`), []byte(`3`)})
	if err == nil {
		t.Fatal("duplicate (batch_id, seq) should fail")
	}

	n, _ := store.Count(ctx, "t")
	if n != 1 {
		t.Errorf("Count = %d, want 1 (failed batch rolled back)", n)
	}
}

func TestInsertBatch_TablePrefix(t *testing.T) {
	store := openTestStore(t, "relogs_")
	ctx := context.Background()

	if err := store.InsertBatch(ctx, "events", "b1", time.Now(), [][]byte{[]byte(`{}`)}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	var n int
	if err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "relogs_events"`).Scan(&n); err != nil {
		t.Fatalf("query prefixed table: %v", err)
	}
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestInsertBatch_Empty(t *testing.T) {
	store := openTestStore(t, "")
	if err := store.InsertBatch(context.Background(), "t", "b", time.Now(), nil); err != nil {
		t.Errorf("InsertBatch(nil) = %v", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := Open(ctx, Config{Dialect: "oracle"}, nil); !errors.Is(err, ErrUnknownDialect) {
		t.Errorf("Open(oracle) error = %v, want ErrUnknownDialect", err)
	}
	if _, err := Open(ctx, Config{Dialect: DialectSQLite}, nil); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Open(no path) error = %v, want ErrEmptyPath", err)
	}
}

func TestPostgresDialect(t *testing.T) {
	store := New(nil, DialectPostgres, "", nil)
	if got := store.placeholders(4); got != "$1, $2, $3, $4" {
		t.Errorf("placeholders = %q", got)
	}

	sqlite := New(nil, DialectSQLite, "", nil)
	if got := sqlite.placeholders(2); got != "?, ?" {
		t.Errorf("placeholders = %q", got)
	}
}
