package backend

import (
	"context"
	"fmt"
	"log/slog"

	"cassa/internal/store"
	"cassa/internal/store/drive"
	"cassa/internal/store/mongo"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new remote store factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryStore()
	case MongoBackend:
		return f.createMongoStore(ctx, config)
	case DriveBackend:
		return f.createDriveStore(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryStore() (*Result, error) {
	f.logger.Info("Initialized memory store")

	return &Result{
		Store:   store.NewMemory(),
		Cleanup: nil, // No cleanup needed for memory store
	}, nil
}

func (f *DefaultFactory) createMongoStore(ctx context.Context, config Config) (*Result, error) {
	st, err := mongo.New(ctx, config.MongoURI, config.MongoDatabase, config.MongoCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Mongo store: %w", err)
	}

	f.logger.Info("Initialized Mongo store",
		"database", config.MongoDatabase,
		"collection", config.MongoCollection)

	return &Result{
		Store: st,
		Cleanup: func() error {
			return st.Close(context.Background())
		},
	}, nil
}

func (f *DefaultFactory) createDriveStore(ctx context.Context) (*Result, error) {
	cli, err := drive.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Drive store: %w", err)
	}

	f.logger.Info("Initialized Google Drive store")

	return &Result{
		Store:   cli,
		Cleanup: nil, // No cleanup needed for the drive store
	}, nil
}
