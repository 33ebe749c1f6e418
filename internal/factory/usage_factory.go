package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/adapters/usage"
	"github.com/mikey/inbox-classifier/internal/config"
	"github.com/mikey/inbox-classifier/internal/core"
)

// UsageFactory creates usage repositories based on configuration
type UsageFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewUsageFactory creates a new usage factory
func NewUsageFactory(cfg *config.Config, logger *zap.Logger) *UsageFactory {
	return &UsageFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateUsageRepository creates a usage repository based on the configuration
func (f *UsageFactory) CreateUsageRepository() (core.UsageRepository, error) {
	storeCfg := f.cfg.GetUsageStore()

	switch storeCfg.Type {
	case "memory":
		return usage.NewMemoryStore(f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return usage.NewSQLiteStore(storeCfg.SQLitePath, f.logger)
	case "mysql":
		return usage.NewMySQLStore(storeCfg.MySQLDSN, f.logger)
	case "postgres":
		return usage.NewPostgresStore(storeCfg.PostgresDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported usage store type: %s", storeCfg.Type)
	}
}

// CreateUsageLedger creates the ledger over repo with the configured daily limit
func (f *UsageFactory) CreateUsageLedger(repo core.UsageRepository) *core.UsageLedger {
	return core.NewUsageLedger(repo, f.logger, f.cfg.GetQuota().DailyLimit, nil)
}
