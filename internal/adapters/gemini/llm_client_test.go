package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/mikey/inbox-classifier/internal/core"
)

type fakeModel struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (m *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	m.parts = parts
	return m.resp, m.err
}

func textResponse(texts ...string) *genai.GenerateContentResponse {
	parts := make([]genai.Part, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, genai.Text(t))
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func newTestClient(model contentGenerator) *GeminiClient {
	return &GeminiClient{model: model, modelName: "test-model", logger: zap.NewNop()}
}

func TestGenerate(t *testing.T) {
	model := &fakeModel{resp: textResponse("Shop", "ping")}

	text, err := newTestClient(model).Generate(context.Background(), "classify me")

	require.NoError(t, err)
	assert.Equal(t, "Shopping", text)
	require.Len(t, model.parts, 1)
	assert.Equal(t, genai.Text("classify me"), model.parts[0])
}

func TestGenerate_EmptyResponse(t *testing.T) {
	for _, resp := range []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
	} {
		_, err := newTestClient(&fakeModel{resp: resp}).Generate(context.Background(), "p")
		require.Error(t, err)
		assert.False(t, core.IsRetryable(err))
	}
}

func TestGenerate_TranslatesErrors(t *testing.T) {
	_, err := newTestClient(&fakeModel{err: &googleapi.Error{Code: http.StatusTooManyRequests}}).
		Generate(context.Background(), "p")
	assert.True(t, core.IsRetryable(err))

	_, err = newTestClient(&fakeModel{err: &googleapi.Error{Code: http.StatusBadRequest}}).
		Generate(context.Background(), "p")
	var upstream *core.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, core.Fatal, upstream.Kind)
}

func TestTranslateError_GRPCRetryInfo(t *testing.T) {
	st, err := status.New(codes.ResourceExhausted, "quota exceeded").
		WithDetails(&errdetails.RetryInfo{RetryDelay: durationpb.New(59 * time.Second)})
	require.NoError(t, err)

	translated := translateError(st.Err())

	assert.Equal(t, core.Retryable, translated.Kind)
	assert.Equal(t, 59*time.Second, translated.RetryAfter)
}

func TestTranslateError_GRPCWithoutDelay(t *testing.T) {
	translated := translateError(status.Error(codes.ResourceExhausted, "quota exceeded"))

	assert.Equal(t, core.Retryable, translated.Kind)
	assert.Zero(t, translated.RetryAfter)
}

func TestTranslateError_Fatal(t *testing.T) {
	for _, err := range []error{
		status.Error(codes.PermissionDenied, "API key not valid"),
		errors.New("connection reset by peer"),
		context.DeadlineExceeded,
		fmt.Errorf("wrapped: %w", context.Canceled),
	} {
		assert.Equal(t, core.Fatal, translateError(err).Kind, "error %v", err)
	}
}

func TestTranslateError_MessageFallback(t *testing.T) {
	err := errors.New(`googleapi: Error 429: RESOURCE_EXHAUSTED {"retryDelay": "12.5s"}`)

	translated := translateError(err)

	assert.Equal(t, core.Retryable, translated.Kind)
	assert.Equal(t, 12500*time.Millisecond, translated.RetryAfter)
}

func TestParseRetryDelay(t *testing.T) {
	tests := []struct {
		msg  string
		want time.Duration
	}{
		{"rpc error: code = ResourceExhausted desc = quota retry_delay { seconds: 59 }", 59 * time.Second},
		{"retry_delay {seconds:7}", 7 * time.Second},
		{`{"error": {"details": [{"retryDelay": "30s"}]}}`, 30 * time.Second},
		{`"retryDelay": "1.5s"`, 1500 * time.Millisecond},
		{"quota exceeded", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseRetryDelay(tt.msg), tt.msg)
	}
}
