package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/adapters/gmail"
	"github.com/mikey/inbox-classifier/internal/adapters/imap"
	"github.com/mikey/inbox-classifier/internal/auth"
	"github.com/mikey/inbox-classifier/internal/config"
	"github.com/mikey/inbox-classifier/internal/core"
	"github.com/mikey/inbox-classifier/internal/utils"
)

// SourceFactory creates mailbox sources and the batch service that drains them
type SourceFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *SourceFactory {
	return &SourceFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateGmailProvider creates the per-user Gmail source provider
func (f *SourceFactory) CreateGmailProvider(oauth *auth.GoogleOAuth) (*gmail.Provider, error) {
	googleCfg, err := f.cfg.GetGoogle()
	if err != nil {
		return nil, fmt.Errorf("invalid google configuration: %w", err)
	}
	return gmail.NewProvider(oauth.Config(), googleCfg.BreakerTimeout, f.logger), nil
}

// CreateIMAPSource creates a source for the configured IMAP mailbox
func (f *SourceFactory) CreateIMAPSource() (*imap.Source, error) {
	imapCfg := f.cfg.GetIMAP()
	if imapCfg.Address == "" {
		return nil, fmt.Errorf("imap.address is required")
	}
	if imapCfg.Username == "" {
		return nil, fmt.Errorf("imap.username is required")
	}

	return imap.NewSource(imap.Config{
		Address:    imapCfg.Address,
		Username:   imapCfg.Username,
		Password:   imapCfg.Password,
		OAuthToken: imapCfg.OAuthToken,
	}, imap.DialTLS, f.logger, f.textProcessor), nil
}

// CreateBatchService creates the batch orchestrator with the configured limits
func (f *SourceFactory) CreateBatchService(
	classifier core.EmailClassifier,
	gate core.UsageGate,
	metrics core.MetricsRecorder,
) (*core.BatchService, error) {
	batchCfg, err := f.cfg.GetBatch()
	if err != nil {
		return nil, fmt.Errorf("invalid batch configuration: %w", err)
	}

	return core.NewBatchService(classifier, gate, f.logger, metrics, core.BatchOptions{
		MaxMessages:   batchCfg.MaxMessages,
		Folder:        batchCfg.Folder,
		RetryAttempts: batchCfg.RetryAttempts,
		RetryDelay:    batchCfg.RetryDelay,
	}), nil
}
