package cache

import (
	"log/slog"
	"time"
)

// Cache is the read/write surface shared by the memoization caches.
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Purge removes every entry from the cache
	Purge()

	// Size returns the current number of items in the cache
	Size() int
}

// Cleaner is implemented by caches whose entries expire.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps expired entries out of its registered caches on a fixed
// interval, so each cache owner does not run its own cleanup goroutine.
type Manager struct {
	caches []Cleaner
	stop   chan struct{}
	done   chan struct{}
}

func NewManager(caches ...Cleaner) *Manager {
	return &Manager{
		caches: caches,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds a cache to the sweep. Must happen before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup launches the sweep goroutine.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.run(interval)
}

func (m *Manager) run(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := 0
			for _, c := range m.caches {
				removed += c.CleanExpired()
			}
			if removed > 0 {
				slog.Debug("Expired cache entries removed", "count", removed)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop ends the sweep and waits for the goroutine to exit. Only valid
// after StartCleanup, and only once.
func (m *Manager) Stop() {
	close(m.stop)
	<-m.done
}
