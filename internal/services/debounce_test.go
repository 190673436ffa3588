package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSaverCoalescesTriggers(t *testing.T) {
	var flushes int64
	saver := NewSaver(20*time.Millisecond, func(context.Context) {
		atomic.AddInt64(&flushes, 1)
	})
	defer saver.Stop()

	for i := 0; i < 5; i++ {
		saver.Trigger()
	}

	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt64(&flushes); got != 1 {
		t.Errorf("flushes = %d, want 1 for a burst of triggers", got)
	}
}

func TestSaverFlushRunsImmediately(t *testing.T) {
	var flushes int64
	saver := NewSaver(time.Hour, func(context.Context) {
		atomic.AddInt64(&flushes, 1)
	})
	defer saver.Stop()

	saver.Trigger()
	saver.Flush(context.Background())

	if got := atomic.LoadInt64(&flushes); got != 1 {
		t.Errorf("flushes = %d, want 1 after explicit Flush", got)
	}

	// The pending timer was cancelled, no second flush arrives.
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt64(&flushes); got != 1 {
		t.Errorf("flushes = %d after wait, want still 1", got)
	}
}

func TestSaverStopCancelsPending(t *testing.T) {
	var flushes int64
	saver := NewSaver(10*time.Millisecond, func(context.Context) {
		atomic.AddInt64(&flushes, 1)
	})

	saver.Trigger()
	saver.Stop()

	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt64(&flushes); got != 0 {
		t.Errorf("flushes = %d, want 0 after Stop", got)
	}

	// Triggers after Stop are ignored.
	saver.Trigger()
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt64(&flushes); got != 0 {
		t.Errorf("flushes = %d after post-stop trigger, want 0", got)
	}
}
