// Package sqltransport inserts each batch into a SQL table named after its
// telemetry table.
package sqltransport

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/SebastienMelki/relogs/internal/sqlstore"
)

// StatusFailed is the status reported for a failed insert.
const StatusFailed = -1

// BatchInserter stores one batch of encoded payloads.
type BatchInserter interface {
	InsertBatch(ctx context.Context, table, batchID string, receivedAt time.Time, payloads [][]byte) error
}

// Transport encodes payloads as JSON and inserts them.
type Transport struct {
	store BatchInserter
	clock clockwork.Clock
}

// New creates a Transport. A nil clock uses the real clock.
func New(store BatchInserter, clock clockwork.Clock) *Transport {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Transport{store: store, clock: clock}
}

// Send inserts batch in one transaction. It reports 0 on success and
// StatusFailed otherwise.
func (t *Transport) Send(ctx context.Context, table string, batch []any) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	payloads := make([][]byte, len(batch))
	for i, payload := range batch {
		data, err := json.Marshal(payload)
		if err != nil {
			return StatusFailed, fmt.Errorf("sqltransport: marshal payload %d: %w", i, err)
		}
		payloads[i] = data
	}

	if err := t.store.InsertBatch(ctx, table, uuid.NewString(), t.clock.Now(), payloads); err != nil {
		return StatusFailed, err
	}
	return 0, nil
}

var _ BatchInserter = (*sqlstore.Store)(nil)
