package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/core"
)

type classifyResponse struct {
	Categories     map[core.Category]int `json:"categories"`
	TotalProcessed int                   `json:"total_processed"`
	UnreadCount    int                   `json:"unread_count"`
	DailyLimit     int                   `json:"daily_limit"`
}

type limitResponse struct {
	Error        string `json:"error"`
	LimitReached bool   `json:"limit_reached"`
	DailyLimit   int    `json:"daily_limit"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(r)
	if !sess.Authenticated() {
		s.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	refreshToken, err := s.deps.Cipher.Decrypt(sess.RefreshToken)
	if err != nil {
		s.logger.Warn("Stored refresh token unreadable", zap.String("user_id", sess.UserID), zap.Error(err))
		s.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	source, err := s.deps.Sources.SourceFor(ctx, refreshToken)
	if err != nil {
		s.logger.Error("Failed to open mailbox", zap.String("user_id", sess.UserID), zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to classify emails",
			Details: err.Error(),
		})
		return
	}
	if closer, ok := source.(io.Closer); ok {
		defer closer.Close()
	}

	s.logger.Info("Starting email classification", zap.String("user_id", sess.UserID))

	result, err := s.deps.Batch.ProcessBatch(ctx, sess.UserID, source, s.deps.Batch.MaxMessages())
	if err != nil {
		var quotaErr *core.QuotaExceededError
		if errors.As(err, &quotaErr) {
			s.writeJSON(w, http.StatusTooManyRequests, limitResponse{
				Error:        "Daily processing limit reached",
				LimitReached: true,
				DailyLimit:   quotaErr.Limit,
			})
			return
		}

		if errors.Is(err, core.ErrReauthRequired) {
			s.logger.Warn("Mailbox grant revoked, ending session", zap.String("user_id", sess.UserID), zap.Error(err))
			s.endSession(w, r, sess.ID)
			s.writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		s.logger.Error("Error in classify emails", zap.String("user_id", sess.UserID), zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to classify emails",
			Details: err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, classifyResponse{
		Categories:     result.CategoryCounts,
		TotalProcessed: result.TotalProcessed,
		UnreadCount:    result.UnreadCount,
		DailyLimit:     s.deps.Usage.DailyLimit(),
	})
}

func (s *Server) handleUserUsage(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(r)
	if !sess.Authenticated() {
		s.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	summary, err := s.deps.Usage.Summary(r.Context(), sess.UserID)
	if err != nil {
		s.logger.Error("Error getting usage", zap.String("user_id", sess.UserID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to get usage data")
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                  "healthy",
		"google_oauth_configured": s.deps.Auth != nil && s.deps.Auth.Configured(),
		"llm_configured":          s.opts.LLMConfigured,
		"encryption_configured":   s.opts.EncryptionConfigured,
	})
}

type testInput struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Snippet string `json:"snippet"`
}

type testCase struct {
	input    testInput
	expected core.Category
}

var classifierTestCases = []testCase{
	{
		input: testInput{
			Subject: "Your Amazon order has shipped",
			Sender:  "shipment-tracking@amazon.com",
			Snippet: "Your order #123-456 has been shipped and will arrive tomorrow",
		},
		expected: core.CategoryShopping,
	},
	{
		input: testInput{
			Subject: "Your bank statement is ready",
			Sender:  "notifications@bankofamerica.com",
			Snippet: "Your monthly statement for account ending in 1234 is now available",
		},
		expected: core.CategoryFinance,
	},
	{
		input: testInput{
			Subject: "Meeting tomorrow at 3pm",
			Sender:  "john.doe@company.com",
			Snippet: "Hi, just a reminder about our project meeting tomorrow at 3pm",
		},
		expected: core.CategoryWork,
	},
	{
		input: testInput{
			Subject: "50% off everything this weekend!",
			Sender:  "deals@store.com",
			Snippet: "Don't miss our biggest sale of the year - 50% off all items",
		},
		expected: core.CategoryPromotions,
	},
}

func (in testInput) request() core.ClassificationRequest {
	return core.ClassificationRequest{Subject: in.Subject, Sender: in.Sender, Snippet: in.Snippet}
}

func (s *Server) handleTestClassifier(w http.ResponseWriter, r *http.Request) {
	in := testInput{
		Subject: "Test Subject",
		Sender:  "test@example.com",
		Snippet: "This is a test email",
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	type predefined struct {
		Subject  string        `json:"subject"`
		Expected core.Category `json:"expected_category"`
		Actual   core.Category `json:"actual_category"`
	}

	results := make([]predefined, 0, len(classifierTestCases))
	for _, tc := range classifierTestCases {
		results = append(results, predefined{
			Subject:  tc.input.Subject,
			Expected: tc.expected,
			Actual:   s.deps.Classifier.Classify(r.Context(), tc.input.request()),
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"custom_test": map[string]interface{}{
			"input":    in,
			"category": s.deps.Classifier.Classify(r.Context(), in.request()),
		},
		"predefined_tests": results,
	})
}
