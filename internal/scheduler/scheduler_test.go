package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func waitTicks(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := range n {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d did not fire", i+1)
		}
	}
}

func TestTicker_FiresEachInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ticks := make(chan struct{}, 10)

	s := NewTicker(clock, time.Second)
	if err := s.Start(func() { ticks <- struct{}{} }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	clock.BlockUntil(1)
	for range 3 {
		clock.Advance(time.Second)
		waitTicks(t, ticks, 1)
	}
}

func TestTicker_StopHaltsTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var count atomic.Int32

	s := NewTicker(clock, time.Second)
	if err := s.Start(func() { count.Add(1) }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clock.BlockUntil(1)

	s.Stop()
	if s.Running() {
		t.Fatal("ticker should not be running after Stop")
	}

	clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("ticks after Stop: got %d, want 0", got)
	}
}

func TestTicker_StartTwiceFails(t *testing.T) {
	s := NewTicker(clockwork.NewFakeClock(), time.Second)
	if err := s.Start(func() {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if err := s.Start(func() {}); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start: got %v, want ErrAlreadyRunning", err)
	}
}

func TestTicker_RestartAfterStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ticks := make(chan struct{}, 10)

	s := NewTicker(clock, time.Second)
	if err := s.Start(func() {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
	s.Stop()

	if err := s.Start(func() { ticks <- struct{}{} }); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer s.Stop()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitTicks(t, ticks, 1)
}

func TestTicker_SlowCallbackDoesNotBlockNextTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	release := make(chan struct{})
	started := make(chan struct{}, 10)

	s := NewTicker(clock, time.Second)
	if err := s.Start(func() {
		started <- struct{}{}
		<-release
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		close(release)
		s.Stop()
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitTicks(t, started, 1)

	clock.Advance(time.Second)
	waitTicks(t, started, 1)
}
