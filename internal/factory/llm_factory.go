package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/config"
	"github.com/mikey/inbox-classifier/internal/core"
	"github.com/mikey/inbox-classifier/internal/utils"
)

// LLMFactory creates the text generator behind the classifier
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextGenerator creates a text generator for the configured provider
func (f *LLMFactory) CreateTextGenerator() (core.TextGenerator, error) {
	provider := f.cfg.GetLLM().Provider
	f.logger.Info("Creating text generator", zap.String("provider", provider))

	switch provider {
	case "bedrock":
		return NewBedrockFactory(f.cfg, f.logger).CreateTextGenerator()
	case "gemini":
		return NewGeminiFactory(f.cfg, f.logger).CreateTextGenerator()
	case "openai":
		return NewOpenAIFactory(f.cfg, f.logger).CreateTextGenerator()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// CreateClassifier wraps generator in a classifier using the configured retry policy
func (f *LLMFactory) CreateClassifier(
	generator core.TextGenerator,
	textProcessor *utils.TextProcessor,
	metrics core.MetricsRecorder,
) (*core.Classifier, error) {
	classifierCfg, err := f.cfg.GetClassifier()
	if err != nil {
		return nil, fmt.Errorf("invalid classifier configuration: %w", err)
	}

	return core.NewClassifier(generator, f.logger, textProcessor, metrics, core.ClassifierOptions{
		MaxAttempts: classifierCfg.MaxAttempts,
		BackoffMin:  classifierCfg.BackoffMin,
		BackoffMax:  classifierCfg.BackoffMax,
		Timeout:     classifierCfg.Timeout,
	}), nil
}
