package services

import (
	"context"
	"sync"
	"time"
)

// Saver coalesces bursts of mutations into a single remote write. Each
// Trigger resets the timer, so the flush runs once the ledger has been
// quiet for the configured delay.
type Saver struct {
	delay time.Duration
	flush func(ctx context.Context)

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func NewSaver(delay time.Duration, flush func(ctx context.Context)) *Saver {
	return &Saver{
		delay: delay,
		flush: flush,
	}
}

// Trigger schedules a flush after the debounce delay, resetting any
// pending timer.
func (s *Saver) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		s.flush(context.Background())
	})
}

// Flush cancels any pending timer and runs the flush immediately.
func (s *Saver) Flush(ctx context.Context) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.flush(ctx)
}

// Stop cancels any pending flush without running it.
func (s *Saver) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
