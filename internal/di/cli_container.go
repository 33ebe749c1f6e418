package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/adapters/imap"
	"github.com/mikey/inbox-classifier/internal/config"
	"github.com/mikey/inbox-classifier/internal/core"
	"github.com/mikey/inbox-classifier/internal/factory"
	"github.com/mikey/inbox-classifier/internal/logging"
)

// CLIFlags contains the global flags of the operator CLI
type CLIFlags struct {
	ConfigFile string
	Provider   string
	UsageStore string
	Verbose    bool
	JSONLog    bool
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := loadCLIConfig(flags)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// The CLI exports no metrics
	if err := container.Provide(func() core.MetricsRecorder { return core.NopMetrics }); err != nil {
		return nil, err
	}

	if err := provideCore(container); err != nil {
		return nil, err
	}

	// Register IMAP source
	if err := container.Provide(func(f *factory.SourceFactory) (*imap.Source, error) {
		return f.CreateIMAPSource()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// loadCLIConfig reads the configuration and applies flag overrides on top
func loadCLIConfig(flags *CLIFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.ConfigFile != "" {
		cfg, err = config.NewFromFile(flags.ConfigFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, err
	}

	if flags.Provider != "" {
		cfg.Set("llm.provider", flags.Provider)
	}
	if flags.UsageStore != "" {
		cfg.Set("usage.type", flags.UsageStore)
	}
	return cfg, nil
}
