package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cassa/internal/amqp"
	"cassa/internal/storage"
	"cassa/internal/store"
)

// SyncWorker mirrors local ledger snapshots to the remote document store.
// AMQP messages drive the fast path; the pending sweep recovers snapshots
// whose messages were lost or whose remote writes failed.
type SyncWorker struct {
	cache     *storage.SnapshotCache
	remote    store.DocumentStore
	batchSize int
}

func NewSyncWorker(cache *storage.SnapshotCache, remote store.DocumentStore, batchSize int) *SyncWorker {
	return &SyncWorker{
		cache:     cache,
		remote:    remote,
		batchSize: batchSize,
	}
}

// HandleSyncMessage mirrors the snapshot named by one AMQP message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"key", msg.Key,
		"version", msg.Version)

	snap, err := w.cache.Load(ctx, msg.Key)
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			// The snapshot was deleted after the message was queued.
			slog.WarnContext(ctx, "Snapshot gone, dropping sync message", "key", msg.Key)
			return nil
		}
		return fmt.Errorf("load snapshot %q: %w", msg.Key, err)
	}

	if snap.Version < msg.Version {
		// The cache should never be behind the message that announced it.
		return fmt.Errorf("snapshot %q at version %d, message wants %d", msg.Key, snap.Version, msg.Version)
	}

	return w.mirror(ctx, snap)
}

// ProcessPendingSnapshots mirrors snapshots that are still marked dirty.
// This is the backup path for lost AMQP messages and worker downtime.
func (w *SyncWorker) ProcessPendingSnapshots(ctx context.Context) error {
	pending, err := w.cache.PendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending snapshots: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending snapshots", "count", len(pending))

	for _, snap := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.mirror(ctx, snap); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror snapshot",
				"key", snap.Key,
				"version", snap.Version,
				"error", err)
		}
	}

	return nil
}

// StartupSyncCheck drains the dirty backlog once at worker startup with a
// larger batch, recovering from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.cache.PendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending snapshots for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending snapshots found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending snapshots on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, snap := range pending {
		if err := w.mirror(ctx, snap); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror snapshot during startup",
				"key", snap.Key, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) mirror(ctx context.Context, snap storage.Snapshot) error {
	if err := w.remote.Put(ctx, snap.Key, snap.Doc); err != nil {
		return fmt.Errorf("put document %q: %w", snap.Key, err)
	}

	if err := w.cache.MarkSynced(ctx, snap.Key, snap.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark snapshot synced",
			"key", snap.Key,
			"version", snap.Version,
			"error", err)
		// The remote write went through, the sweep will retry the mark.
	}

	slog.InfoContext(ctx, "Mirrored snapshot to remote store",
		"key", snap.Key,
		"version", snap.Version)

	return nil
}
