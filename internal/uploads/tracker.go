// Package uploads counts in-flight batch uploads so callers can detect quiescence.
package uploads

import (
	"errors"
	"sync/atomic"
)

// ErrUnbalancedEnd is returned when End is called with no upload in flight.
// It always indicates a bookkeeping bug in the caller.
var ErrUnbalancedEnd = errors.New("uploads: end called with no upload in flight")

// Tracker is a non-negative counter of uploads in progress.
type Tracker struct {
	inFlight atomic.Int64
}

// Begin records the start of an upload.
func (t *Tracker) Begin() {
	t.inFlight.Add(1)
}

// End records the settlement of an upload. The counter never goes below
// zero: an unmatched End leaves it untouched and returns ErrUnbalancedEnd.
func (t *Tracker) End() error {
	for {
		n := t.inFlight.Load()
		if n <= 0 {
			return ErrUnbalancedEnd
		}
		if t.inFlight.CompareAndSwap(n, n-1) {
			return nil
		}
	}
}

// InFlight returns the number of uploads currently in progress.
func (t *Tracker) InFlight() int64 {
	return t.inFlight.Load()
}

// Idle reports whether no upload is in progress.
func (t *Tracker) Idle() bool {
	return t.inFlight.Load() == 0
}
