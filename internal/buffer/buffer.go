// Package buffer holds events waiting to be flushed, grouped by destination table.
package buffer

import (
	"sync"
	"sync/atomic"
)

// Event is a single tracked payload bound for a table.
// It is never mutated once appended.
type Event struct {
	Table   string
	Payload any
}

// Batch is the ordered set of payloads destined for one table.
type Batch struct {
	Table    string
	Payloads []any
}

// Buffer is an append-only event buffer drained by atomic swap.
// It is safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	events []Event
	size   atomic.Int64
}

// New creates an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Append adds an event to the buffer. It never blocks beyond the
// short critical section guarding the slice.
func (b *Buffer) Append(table string, payload any) {
	b.mu.Lock()
	b.events = append(b.events, Event{Table: table, Payload: payload})
	b.size.Store(int64(len(b.events)))
	b.mu.Unlock()
}

// SnapshotAndClear atomically swaps out the buffered events and returns them.
// Events appended after the swap belong to the next snapshot.
func (b *Buffer) SnapshotAndClear() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == 0 {
		return nil
	}

	events := b.events
	b.events = nil
	b.size.Store(0)
	return events
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	return int(b.size.Load())
}

// IsEmpty reports whether no events are buffered.
func (b *Buffer) IsEmpty() bool {
	return b.size.Load() == 0
}

// Partition groups a snapshot by table. Every event lands in exactly one
// batch, payload order within a table follows append order, and batches are
// returned in the order their table was first seen.
func Partition(events []Event) []Batch {
	if len(events) == 0 {
		return nil
	}

	index := make(map[string]int)
	var batches []Batch
	for _, e := range events {
		i, ok := index[e.Table]
		if !ok {
			i = len(batches)
			index[e.Table] = i
			batches = append(batches, Batch{Table: e.Table})
		}
		batches[i].Payloads = append(batches[i].Payloads, e.Payload)
	}
	return batches
}
