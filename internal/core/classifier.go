package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/utils"
)

const logPreviewRunes = 50

// ClassifierOptions tunes the retry policy and call timeout of a Classifier
type ClassifierOptions struct {
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	Timeout     time.Duration
}

// DefaultClassifierOptions returns the production retry policy
func DefaultClassifierOptions() ClassifierOptions {
	return ClassifierOptions{
		MaxAttempts: 5,
		BackoffMin:  4 * time.Second,
		BackoffMax:  60 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// Classifier maps an email onto the fixed category set using a TextGenerator
type Classifier struct {
	generator     TextGenerator
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	metrics       MetricsRecorder
	opts          ClassifierOptions
	sleep         SleepFunc
}

// NewClassifier creates a new classifier. A nil metrics recorder is allowed.
func NewClassifier(
	generator TextGenerator,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
	metrics MetricsRecorder,
	opts ClassifierOptions,
) *Classifier {
	defaults := DefaultClassifierOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.BackoffMin <= 0 {
		opts.BackoffMin = defaults.BackoffMin
	}
	if opts.BackoffMax < opts.BackoffMin {
		opts.BackoffMax = opts.BackoffMin
	}
	if metrics == nil {
		metrics = NopMetrics
	}
	if textProcessor == nil {
		textProcessor = utils.NewTextProcessor(logger)
	}

	return &Classifier{
		generator:     generator,
		logger:        logger,
		textProcessor: textProcessor,
		metrics:       metrics,
		opts:          opts,
		sleep:         ContextSleep,
	}
}

// WithSleep replaces the function used to wait between attempts
func (c *Classifier) WithSleep(sleep SleepFunc) *Classifier {
	c.sleep = sleep
	return c
}

// BuildPrompt renders the classification prompt for req
func BuildPrompt(req ClassificationRequest) string {
	names := make([]string, len(categories))
	var descriptions strings.Builder
	for i, c := range categories {
		names[i] = string(c)
		fmt.Fprintf(&descriptions, "- %s: %s\n", c, c.Description())
	}

	return fmt.Sprintf(`Classify the following email content into one of these categories: %s.

Email Subject: '%s'
Sender: '%s'
Body Snippet: '%s'

Categories:
%s
Respond with only the category name.`,
		strings.Join(names, ", "), req.Subject, req.Sender, req.Snippet, descriptions.String())
}

// Classify returns the category for req. It never fails: unmappable answers,
// non-retryable errors and exhausted retries all resolve to FallbackCategory.
func (c *Classifier) Classify(ctx context.Context, req ClassificationRequest) Category {
	prompt := BuildPrompt(req)

	c.logger.Info("Classifying email",
		zap.String("subject", c.textProcessor.Preview(req.Subject, logPreviewRunes)),
		zap.String("sender", c.textProcessor.Preview(req.Sender, logPreviewRunes)))

	schedule := c.newSchedule()
	for attempt := 1; ; attempt++ {
		answer, err := c.generate(ctx, prompt)
		if err == nil {
			return c.mapAnswer(answer)
		}

		var upstream *UpstreamError
		if !errors.As(err, &upstream) || upstream.Kind != Retryable {
			c.logger.Warn("Classification failed, defaulting to fallback category",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.String("category", string(FallbackCategory)))
			return c.degrade()
		}

		if attempt >= c.opts.MaxAttempts {
			c.logger.Warn("Classification retries exhausted, defaulting to fallback category",
				zap.Error(err),
				zap.Int("attempts", attempt),
				zap.String("category", string(FallbackCategory)))
			return c.degrade()
		}

		wait := schedule.NextBackOff()
		if upstream.RetryAfter > 0 {
			wait = upstream.RetryAfter
			c.logger.Info("Quota exhausted, waiting for provider retry delay",
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt))
		} else {
			c.logger.Info("Quota exhausted, backing off",
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt))
		}
		c.metrics.ClassificationRetried(wait)

		if err := c.sleep(ctx, wait); err != nil {
			c.logger.Warn("Classification wait interrupted, defaulting to fallback category", zap.Error(err))
			return c.degrade()
		}
	}
}

func (c *Classifier) generate(ctx context.Context, prompt string) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	return c.generator.Generate(ctx, prompt)
}

func (c *Classifier) mapAnswer(answer string) Category {
	normalized := strings.TrimSpace(answer)
	c.logger.Info("Model response", zap.String("answer", c.textProcessor.Preview(normalized, logPreviewRunes)))

	category, ok := ParseCategory(normalized)
	if !ok {
		c.logger.Warn("Invalid category from model, defaulting to fallback category",
			zap.String("answer", c.textProcessor.Preview(normalized, logPreviewRunes)),
			zap.String("category", string(FallbackCategory)))
		return c.degrade()
	}

	c.metrics.ClassificationCompleted(category, false)
	return category
}

func (c *Classifier) degrade() Category {
	c.metrics.ClassificationCompleted(FallbackCategory, true)
	return FallbackCategory
}

// newSchedule returns the exponential wait sequence min, 2*min, ... capped at max
func (c *Classifier) newSchedule() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.BackoffMin
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.opts.BackoffMax
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
