package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/core"
)

// "Please try again in 1.5s." / "Please try again in 480ms."
var tryAgainIn = regexp.MustCompile(`try again in (\d+(?:\.\d+)?)(ms|s)`)

// OpenAIClient is an implementation of the TextGenerator interface using OpenAI
type OpenAIClient struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *OpenAIClient {
	return NewOpenAIClientWithConfig(openai.DefaultConfig(apiKey), modelName, maxTokens, temperature, topP, logger)
}

// NewOpenAIClientWithConfig creates a new OpenAI client from an explicit
// client configuration, e.g. to point at a compatible endpoint
func NewOpenAIClientWithConfig(
	clientConfig openai.ClientConfig,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *OpenAIClient {
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// Generate sends the prompt as a single user message and returns the answer
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		translated := translateError(err)
		c.logger.Debug("OpenAI request failed",
			zap.String("model", c.modelName),
			zap.Stringer("kind", translated.Kind),
			zap.Duration("retry_after", translated.RetryAfter),
			zap.Error(err))
		return "", translated
	}

	if len(resp.Choices) == 0 {
		return "", core.NewFatalError(errors.New("empty response from OpenAI"))
	}

	return resp.Choices[0].Message.Content, nil
}

// translateError maps an OpenAI failure onto the upstream error taxonomy.
// HTTP 429 is retryable unless the account is out of credit.
func translateError(err error) *core.UpstreamError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests && apiErr.Type != "insufficient_quota" {
			return core.NewRetryableError(err, parseTryAgainIn(apiErr.Message))
		}
		return core.NewFatalError(err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return core.NewRetryableError(err, 0)
	}

	return core.NewFatalError(fmt.Errorf("failed to create chat completion with OpenAI: %w", err))
}

func parseTryAgainIn(msg string) time.Duration {
	m := tryAgainIn.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	if m[2] == "ms" {
		return time.Duration(value * float64(time.Millisecond))
	}
	return time.Duration(value * float64(time.Second))
}
