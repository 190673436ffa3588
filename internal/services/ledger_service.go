package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cassa/internal/amqp"
	"cassa/internal/core"
	"cassa/internal/ledger"
	"cassa/internal/storage"
	"cassa/internal/store"
)

// LedgerService owns the in-memory ledger state and orchestrates
// persistence around it. Every mutation is written synchronously to the
// local snapshot cache; the remote mirror is updated asynchronously,
// either through the AMQP worker or a debounced direct write.
type LedgerService struct {
	cache  *storage.SnapshotCache
	remote store.DocumentStore
	queue  *amqp.Client
	saver  *Saver
	key    string
	now    func() time.Time

	mu    sync.Mutex
	state core.LedgerState
}

// Options configures optional collaborators of the service.
type Options struct {
	Remote       store.DocumentStore
	Queue        *amqp.Client
	SaveDebounce time.Duration
	Now          func() time.Time
}

func NewLedgerService(cache *storage.SnapshotCache, key string, opts Options) *LedgerService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SaveDebounce <= 0 {
		opts.SaveDebounce = 2 * time.Second
	}

	s := &LedgerService{
		cache:  cache,
		remote: opts.Remote,
		queue:  opts.Queue,
		key:    key,
		now:    opts.Now,
	}
	s.saver = NewSaver(opts.SaveDebounce, s.pushRemote)
	return s
}

// Load initializes the in-memory state. The local snapshot is the fast
// path, loaded first for instant availability; the remote mirror is then
// consulted and adopted when it carries a newer version, so writes from
// another device are not shadowed by a stale snapshot. With neither
// present a fresh ledger is started. A local snapshot that exists but
// does not decode is an error, never silently replaced.
func (s *LedgerService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	haveLocal := false

	snap, err := s.cache.Load(ctx, s.key)
	switch {
	case err == nil:
		state, err := core.DecodeState(snap.Doc, s.now())
		if err != nil {
			return fmt.Errorf("decode local snapshot %q: %w", s.key, err)
		}
		s.state = state
		haveLocal = true
		slog.InfoContext(ctx, "Loaded ledger from local snapshot",
			"key", s.key,
			"version", state.Version)

	case errors.Is(err, storage.ErrNoSnapshot):
		// fall through to remote

	default:
		return fmt.Errorf("load local snapshot %q: %w", s.key, err)
	}

	if s.remote != nil {
		doc, err := s.remote.Get(ctx, s.key)
		switch {
		case err == nil:
			state, derr := core.DecodeState(doc, s.now())
			if derr != nil {
				// Never adopt a corrupt mirror over a good snapshot.
				if haveLocal {
					slog.ErrorContext(ctx, "Remote document is corrupt, keeping local snapshot",
						"key", s.key, "error", derr)
					return nil
				}
				return fmt.Errorf("decode remote document %q: %w", s.key, derr)
			}
			if haveLocal && state.Version <= s.state.Version {
				return nil
			}
			s.state = state
			if err := s.cache.Save(ctx, s.key, state.Version, doc); err != nil {
				slog.WarnContext(ctx, "Failed to cache remote document locally",
					"key", s.key, "error", err)
			}
			slog.InfoContext(ctx, "Loaded ledger from remote store",
				"key", s.key,
				"version", state.Version)
			return nil

		case errors.Is(err, store.ErrNoDocument):
			// fall through

		default:
			if haveLocal {
				slog.WarnContext(ctx, "Remote fetch failed, staying on local snapshot",
					"key", s.key, "error", err)
				return nil
			}
			return fmt.Errorf("load remote document %q: %w", s.key, err)
		}
	}

	if haveLocal {
		return nil
	}

	s.state = core.NewInitialState(s.now())
	slog.InfoContext(ctx, "Starting fresh ledger", "key", s.key)
	return s.persistLocked(ctx)
}

// State returns an independent copy of the current ledger state.
func (s *LedgerService) State() core.LedgerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// mutate applies a pure transition under the lock and persists the result.
func (s *LedgerService) mutate(ctx context.Context, op func(core.LedgerState) (core.LedgerState, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := op(s.state)
	if err != nil {
		return err
	}
	s.state = next

	return s.persistLocked(ctx)
}

// persistLocked writes the current state to the snapshot cache and kicks
// off the async remote sync. Callers must hold s.mu.
func (s *LedgerService) persistLocked(ctx context.Context) error {
	doc, err := core.EncodeState(s.state)
	if err != nil {
		return fmt.Errorf("encode ledger state: %w", err)
	}

	if err := s.cache.Save(ctx, s.key, s.state.Version, doc); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if s.queue != nil {
		// The worker mirrors the snapshot; a publish failure is not a
		// mutation failure, the retry sweep picks the snapshot up later.
		if err := s.queue.PublishLedgerSync(ctx, s.key, s.state.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message",
				"key", s.key,
				"version", s.state.Version,
				"error", err)
		}
		return nil
	}

	if s.remote != nil {
		s.saver.Trigger()
	}
	return nil
}

// pushRemote mirrors the latest snapshot to the remote store.
func (s *LedgerService) pushRemote(ctx context.Context) {
	if s.remote == nil {
		return
	}

	s.mu.Lock()
	version := s.state.Version
	doc, err := core.EncodeState(s.state)
	s.mu.Unlock()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode state for remote sync", "error", err)
		return
	}

	if err := s.remote.Put(ctx, s.key, doc); err != nil {
		slog.ErrorContext(ctx, "Failed to push ledger to remote store",
			"key", s.key,
			"version", version,
			"error", err)
		return
	}

	if err := s.cache.MarkSynced(ctx, s.key, version); err != nil {
		slog.WarnContext(ctx, "Failed to mark snapshot synced",
			"key", s.key,
			"version", version,
			"error", err)
	}

	slog.InfoContext(ctx, "Pushed ledger to remote store",
		"key", s.key,
		"version", version)
}

// CheckRollover resets the fixed-bill paid flags when a new cycle has
// started. Returns true when a reset happened.
func (s *LedgerService) CheckRollover(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed := ledger.Rollover(s.state, s.now())
	if !changed {
		return false, nil
	}
	s.state = next

	slog.InfoContext(ctx, "Rolled ledger into new cycle",
		"last_reset", next.Settings.LastReset.Format("2006-01-02"))

	return true, s.persistLocked(ctx)
}

func (s *LedgerService) AddIncome(ctx context.Context, in ledger.IncomeInput) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.AddIncome(st, in)
	})
}

func (s *LedgerService) EditIncome(ctx context.Context, id string, in ledger.IncomeInput) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.EditIncome(st, id, in)
	})
}

func (s *LedgerService) DeleteIncome(ctx context.Context, id string) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.DeleteIncome(st, id)
	})
}

func (s *LedgerService) AddExpense(ctx context.Context, in ledger.ExpenseInput) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.AddExpense(st, in)
	})
}

func (s *LedgerService) EditExpense(ctx context.Context, id string, in ledger.ExpenseInput) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.EditExpense(st, id, in)
	})
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id string) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.DeleteExpense(st, id)
	})
}

func (s *LedgerService) AddFixed(ctx context.Context, in ledger.FixedInput) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.AddFixed(st, in)
	})
}

func (s *LedgerService) EditFixed(ctx context.Context, id string, in ledger.FixedInput) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.EditFixed(st, id, in)
	})
}

func (s *LedgerService) DeleteFixed(ctx context.Context, id string) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.DeleteFixed(st, id)
	})
}

func (s *LedgerService) ToggleFixed(ctx context.Context, id string) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.ToggleFixed(st, id)
	})
}

func (s *LedgerService) ResetFixed(ctx context.Context) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.ResetFixed(st), nil
	})
}

func (s *LedgerService) AddEnvelope(ctx context.Context, in ledger.EnvelopeInput) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.AddEnvelope(st, in)
	})
}

func (s *LedgerService) EditEnvelope(ctx context.Context, id string, in ledger.EnvelopeEdit) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.EditEnvelope(st, id, in)
	})
}

func (s *LedgerService) DeleteEnvelope(ctx context.Context, id string) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.DeleteEnvelope(st, id)
	})
}

func (s *LedgerService) FundEnvelope(ctx context.Context, id string, amount core.Money, src core.MoneySource) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.FundEnvelope(st, id, amount, src, s.now())
	})
}

func (s *LedgerService) SpendFromEnvelope(ctx context.Context, id string, amount core.Money, note string) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.SpendFromEnvelope(st, id, amount, note, s.now())
	})
}

func (s *LedgerService) AddCategory(ctx context.Context, label string) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		return ledger.AddCategory(st, label)
	})
}

func (s *LedgerService) UpdatePayday(ctx context.Context, day int) error {
	return s.mutate(ctx, func(st core.LedgerState) (core.LedgerState, error) {
		next, err := ledger.UpdatePayday(st, day)
		if err != nil {
			return next, err
		}
		// A new payday can move the current cycle boundary, so the
		// rollover check runs here instead of waiting for the daily sweep.
		if rolled, changed := ledger.Rollover(next, s.now()); changed {
			slog.InfoContext(ctx, "Payday change crossed a cycle boundary",
				"payday", day,
				"last_reset", rolled.Settings.LastReset.Format("2006-01-02"))
			return rolled, nil
		}
		return next, nil
	})
}

// Close flushes any pending remote write and releases held connections.
func (s *LedgerService) Close() error {
	if s.remote != nil && s.queue == nil {
		s.saver.Flush(context.Background())
	}
	s.saver.Stop()

	var errs []error

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("snapshot cache: %w", err))
		}
	}

	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
