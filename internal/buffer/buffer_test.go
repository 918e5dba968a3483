package buffer

import (
	"sync"
	"testing"
)

func TestAppend_GrowsLength(t *testing.T) {
	b := New()
	if !b.IsEmpty() {
		t.Fatal("new buffer should be empty")
	}

	b.Append("t1", 1)
	b.Append("t1", 2)

	if b.Len() != 2 {
		t.Errorf("Len: got %d, want 2", b.Len())
	}
	if b.IsEmpty() {
		t.Error("buffer should not be empty after Append")
	}
}

func TestSnapshotAndClear_ResetsBuffer(t *testing.T) {
	b := New()
	b.Append("t1", "a")
	b.Append("t2", "b")

	snap := b.SnapshotAndClear()
	if len(snap) != 2 {
		t.Fatalf("snapshot: got %d events, want 2", len(snap))
	}
	if !b.IsEmpty() {
		t.Error("buffer should be empty after snapshot")
	}

	b.Append("t1", "c")
	next := b.SnapshotAndClear()
	if len(next) != 1 || next[0].Payload != "c" {
		t.Errorf("second snapshot: got %+v, want only c", next)
	}
}

func TestSnapshotAndClear_EmptyReturnsNil(t *testing.T) {
	if snap := New().SnapshotAndClear(); snap != nil {
		t.Errorf("got %v, want nil", snap)
	}
}

func TestSnapshotAndClear_ConcurrentAppendsNoLossNoDup(t *testing.T) {
	b := New()

	const writers, perWriter = 8, 500
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range perWriter {
				b.Append("t", w*perWriter+i)
			}
		}(w)
	}

	seen := make(map[int]int)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	collect := func() {
		for _, e := range b.SnapshotAndClear() {
			seen[e.Payload.(int)]++
		}
	}

loop:
	for {
		select {
		case <-done:
			break loop
		default:
			collect()
		}
	}
	collect()

	if len(seen) != writers*perWriter {
		t.Fatalf("distinct events: got %d, want %d", len(seen), writers*perWriter)
	}
	for v, n := range seen {
		if n != 1 {
			t.Fatalf("event %d seen %d times", v, n)
		}
	}
}

func TestPartition_GroupsByTablePreservingOrder(t *testing.T) {
	events := []Event{
		{Table: "x", Payload: "a1"},
		{Table: "y", Payload: "b2"},
		{Table: "x", Payload: "a3"},
	}

	batches := Partition(events)
	if len(batches) != 2 {
		t.Fatalf("batches: got %d, want 2", len(batches))
	}

	if batches[0].Table != "x" || len(batches[0].Payloads) != 2 {
		t.Fatalf("batch x: got %+v", batches[0])
	}
	if batches[0].Payloads[0] != "a1" || batches[0].Payloads[1] != "a3" {
		t.Errorf("batch x order: got %v", batches[0].Payloads)
	}
	if batches[1].Table != "y" || len(batches[1].Payloads) != 1 || batches[1].Payloads[0] != "b2" {
		t.Errorf("batch y: got %+v", batches[1])
	}
}

func TestPartition_CoversEveryEvent(t *testing.T) {
	var events []Event
	tables := []string{"a", "b", "", "c"}
	for i := range 100 {
		events = append(events, Event{Table: tables[i%len(tables)], Payload: i})
	}

	total := 0
	for _, batch := range Partition(events) {
		total += len(batch.Payloads)
	}
	if total != len(events) {
		t.Errorf("partitioned events: got %d, want %d", total, len(events))
	}
}

func TestPartition_Empty(t *testing.T) {
	if got := Partition(nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}
