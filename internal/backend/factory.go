package backend

import (
	"context"
	"fmt"
	"log/slog"

	"bommel/internal/memory"
	"bommel/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	repo.SetOrganization(config.OrganizationID)

	if err := f.seedSQLite(ctx, repo, config); err != nil {
		repo.Close()
		return nil, err
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"organization_id", config.OrganizationID)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
		Ping:    repo.Ping,
	}, nil
}

// seedSQLite imports the seed file into an organization that has no nodes yet.
func (f *DefaultFactory) seedSQLite(ctx context.Context, repo *storage.SQLiteRepository, config Config) error {
	count, err := repo.CountNodes(ctx, config.OrganizationID)
	if err != nil {
		return err
	}
	if count > 0 || config.SeedFile == "" {
		return nil
	}

	seed, err := memory.NewFromFile(config.SeedFile, config.OrganizationID)
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}
	record, err := seed.RootRecord(ctx, config.OrganizationID)
	if err != nil {
		// The seed names another organization; nothing to import here.
		f.logger.Warn("Seed file does not describe this organization", "organization_id", config.OrganizationID)
		return nil
	}
	if err := repo.EnsureOrganization(ctx, config.OrganizationID, record.Label, record.Emoji); err != nil {
		return err
	}
	nodes, err := seed.ListNodes(ctx, config.OrganizationID)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}
	if err := repo.Import(ctx, config.OrganizationID, nodes, seed.Transactions()); err != nil {
		return fmt.Errorf("import seed: %w", err)
	}
	f.logger.Info("Seeded SQLite backend", "seed_file", config.SeedFile, "bommels", len(nodes))
	return nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile, config.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{Backend: store}, nil
}
