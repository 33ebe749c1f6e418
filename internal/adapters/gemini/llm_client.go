package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"

	"github.com/mikey/inbox-classifier/internal/core"
)

var (
	// retry_delay { seconds: 59 } as printed for gRPC status details
	grpcRetryDelay = regexp.MustCompile(`retry_delay\s*\{\s*seconds:\s*(\d+)\s*\}`)
	// "retryDelay": "59s" as printed for REST error bodies
	restRetryDelay = regexp.MustCompile(`"retryDelay":\s*"(\d+(?:\.\d+)?)s"`)
)

// contentGenerator is the part of *genai.GenerativeModel the client uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient is an implementation of the TextGenerator interface using Google Gemini
type GeminiClient struct {
	client    *genai.Client
	model     contentGenerator
	modelName string
	logger    *zap.Logger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	return &GeminiClient{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Generate sends the prompt to Gemini and returns the answer text
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		translated := translateError(err)
		c.logger.Debug("Gemini request failed",
			zap.String("model", c.modelName),
			zap.Stringer("kind", translated.Kind),
			zap.Duration("retry_after", translated.RetryAfter),
			zap.Error(err))
		return "", translated
	}

	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", core.NewFatalError(errors.New("empty response from Gemini"))
	}

	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", core.NewFatalError(errors.New("empty response from Gemini"))
	}

	var sb strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// translateError maps a Gemini failure onto the upstream error taxonomy.
// Quota and rate-limit failures are retryable, everything else is fatal.
func translateError(err error) *core.UpstreamError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return core.NewFatalError(err)
	}

	throttled := false
	var retryAfter time.Duration

	if ae, ok := apierror.FromError(err); ok {
		if st := ae.GRPCStatus(); st != nil && st.Code() == codes.ResourceExhausted {
			throttled = true
		}
		if ae.HTTPCode() == http.StatusTooManyRequests {
			throttled = true
		}
		if info := ae.Details().RetryInfo; info != nil && info.GetRetryDelay() != nil {
			retryAfter = info.GetRetryDelay().AsDuration()
		}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		throttled = true
	}

	msg := err.Error()
	if !throttled && (strings.Contains(msg, "ResourceExhausted") || strings.Contains(msg, "RESOURCE_EXHAUSTED")) {
		throttled = true
	}

	if !throttled {
		return core.NewFatalError(err)
	}

	if retryAfter <= 0 {
		retryAfter = parseRetryDelay(msg)
	}
	return core.NewRetryableError(err, retryAfter)
}

// parseRetryDelay extracts the provider's suggested delay from an error
// message, returning zero when none is present.
func parseRetryDelay(msg string) time.Duration {
	if m := grpcRetryDelay.FindStringSubmatch(msg); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	if m := restRetryDelay.FindStringSubmatch(msg); m != nil {
		if secs, err := strconv.ParseFloat(m[1], 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return 0
}
