// Package scheduler triggers a callback at a fixed cadence.
package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrAlreadyRunning is returned by Start when the scheduler is running.
var ErrAlreadyRunning = errors.New("scheduler: already running")

// Scheduler invokes a callback repeatedly until stopped.
type Scheduler interface {
	Start(fn func()) error
	Stop()
}

// Ticker is a Scheduler backed by a clockwork ticker. Each tick runs the
// callback on its own goroutine, so a slow callback never delays or
// coalesces later ticks.
type Ticker struct {
	clock    clockwork.Clock
	interval time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewTicker creates a stopped Ticker. A nil clock means the real clock.
func NewTicker(clock clockwork.Clock, interval time.Duration) *Ticker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ticker{
		clock:    clock,
		interval: interval,
	}
}

// Start begins ticking.
func (t *Ticker) Start(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopCh != nil {
		return ErrAlreadyRunning
	}

	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})

	ticker := t.clock.NewTicker(t.interval)
	go t.loop(ticker, fn, t.stopCh, t.doneCh)

	return nil
}

// Stop halts ticking and waits for the tick loop to exit. Callbacks already
// started keep running. Stop on a stopped Ticker is a no-op.
func (t *Ticker) Stop() {
	t.mu.Lock()
	stopCh, doneCh := t.stopCh, t.doneCh
	t.stopCh, t.doneCh = nil, nil
	t.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-doneCh
}

// Running reports whether the ticker is started.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopCh != nil
}

func (t *Ticker) loop(ticker clockwork.Ticker, fn func(), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			go fn()
		}
	}
}
