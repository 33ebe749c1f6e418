package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/adapters/gmail"
	"github.com/mikey/inbox-classifier/internal/adapters/httpapi"
	"github.com/mikey/inbox-classifier/internal/adapters/session"
	"github.com/mikey/inbox-classifier/internal/allowlist"
	"github.com/mikey/inbox-classifier/internal/auth"
	"github.com/mikey/inbox-classifier/internal/config"
	"github.com/mikey/inbox-classifier/internal/core"
	"github.com/mikey/inbox-classifier/internal/factory"
	"github.com/mikey/inbox-classifier/internal/logging"
	"github.com/mikey/inbox-classifier/internal/metrics"
	"github.com/mikey/inbox-classifier/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCore(container); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(metrics.NewRecorder); err != nil {
		return nil, err
	}
	if err := container.Provide(func(r *metrics.Recorder) core.MetricsRecorder {
		return r
	}); err != nil {
		return nil, err
	}

	// Register sessions
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*session.MemoryStore, error) {
		sessionCfg, err := cfg.GetSession()
		if err != nil {
			return nil, err
		}
		return session.NewMemoryStore(logger, sessionCfg.TTL, sessionCfg.CleanupFrequency), nil
	}); err != nil {
		return nil, err
	}

	// Register Google sign-in and the token cipher
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*auth.GoogleOAuth, error) {
		googleCfg, err := cfg.GetGoogle()
		if err != nil {
			return nil, err
		}
		return auth.NewGoogleOAuth(googleCfg.ClientID, googleCfg.ClientSecret, googleCfg.RedirectURL, logger), nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*auth.SecretBoxCipher, error) {
		return auth.NewSecretBoxCipher(cfg.GetString("session.encryption_key"), logger)
	}); err != nil {
		return nil, err
	}

	// Register Gmail provider
	if err := container.Provide(func(f *factory.SourceFactory, oauth *auth.GoogleOAuth) (*gmail.Provider, error) {
		return f.CreateGmailProvider(oauth)
	}); err != nil {
		return nil, err
	}

	// Register CORS allowlist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *allowlist.Checker {
		return allowlist.NewChecker(cfg.GetStringSlice("server.cors_origins"), logger)
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(newHTTPServer); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCore registers the classifier, usage ledger and batch service along
// with the factories they are built from.
func provideCore(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewUsageFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register text generator and classifier
	if err := container.Provide(func(f *factory.LLMFactory) (core.TextGenerator, error) {
		return f.CreateTextGenerator()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(
		f *factory.LLMFactory,
		generator core.TextGenerator,
		textProcessor *utils.TextProcessor,
		recorder core.MetricsRecorder,
	) (*core.Classifier, error) {
		return f.CreateClassifier(generator, textProcessor, recorder)
	}); err != nil {
		return err
	}

	// Register usage repository and ledger
	if err := container.Provide(func(f *factory.UsageFactory) (core.UsageRepository, error) {
		return f.CreateUsageRepository()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.UsageFactory, repo core.UsageRepository) *core.UsageLedger {
		return f.CreateUsageLedger(repo)
	}); err != nil {
		return err
	}

	// Register batch service
	return container.Provide(func(
		f *factory.SourceFactory,
		classifier *core.Classifier,
		ledger *core.UsageLedger,
		recorder core.MetricsRecorder,
	) (*core.BatchService, error) {
		return f.CreateBatchService(classifier, ledger, recorder)
	})
}

type serverParams struct {
	dig.In

	Config     *config.Config
	Logger     *zap.Logger
	Batch      *core.BatchService
	Ledger     *core.UsageLedger
	Classifier *core.Classifier
	Sessions   *session.MemoryStore
	OAuth      *auth.GoogleOAuth
	Cipher     *auth.SecretBoxCipher
	Gmail      *gmail.Provider
	Origins    *allowlist.Checker
	Metrics    *metrics.Recorder
}

func newHTTPServer(p serverParams) (*httpapi.Server, error) {
	serverCfg, err := p.Config.GetServer()
	if err != nil {
		return nil, err
	}
	sessionCfg, err := p.Config.GetSession()
	if err != nil {
		return nil, err
	}

	return httpapi.NewServer(httpapi.Dependencies{
		Batch:      p.Batch,
		Usage:      p.Ledger,
		Classifier: p.Classifier,
		Sessions:   p.Sessions,
		Auth:       p.OAuth,
		Cipher:     p.Cipher,
		Sources:    p.Gmail,
		Origins:    p.Origins,
		Metrics:    p.Metrics.Handler(),
		Logger:     p.Logger,
	}, httpapi.Options{
		FrontendURL:          serverCfg.FrontendURL,
		CookieSecure:         serverCfg.CookieSecure,
		Debug:                serverCfg.Debug,
		RequestTimeout:       serverCfg.RequestTimeout,
		SessionTTL:           sessionCfg.TTL,
		LLMConfigured:        p.Config.ValidateLLM() == nil,
		EncryptionConfigured: sessionCfg.EncryptionKey != "",
	}), nil
}
