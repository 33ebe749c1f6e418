package gmail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/mikey/inbox-classifier/internal/core"
)

const (
	unreadLabel    = "UNREAD"
	defaultSubject = "No Subject"
	defaultSender  = "Unknown Sender"
	me             = "me"
)

// Source is an implementation of the MessageSource interface over the Gmail API
type Source struct {
	svc     *gmail.Service
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewSource creates a message source for an authorized Gmail service.
// The breaker may be shared between sources.
func NewSource(svc *gmail.Service, breaker *gobreaker.CircuitBreaker, logger *zap.Logger) *Source {
	return &Source{
		svc:     svc,
		breaker: breaker,
		logger:  logger,
	}
}

// List returns up to maxResults message ids carrying the folder label
func (s *Source) List(ctx context.Context, maxResults int, folder string) ([]string, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		call := s.svc.Users.Messages.List(me).MaxResults(int64(maxResults))
		if folder != "" {
			call = call.LabelIds(folder)
		}
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, translateError(err)
	}

	resp := out.(*gmail.ListMessagesResponse)
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}

	s.logger.Debug("Listed Gmail messages", zap.String("label", folder), zap.Int("count", len(ids)))
	return ids, nil
}

// Get fetches the subject, sender, snippet and unread state of one message
func (s *Source) Get(ctx context.Context, messageID string) (*core.MessageMetadata, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.svc.Users.Messages.Get(me, messageID).
			Format("metadata").
			MetadataHeaders("Subject", "From").
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, translateError(err)
	}

	return toMetadata(out.(*gmail.Message)), nil
}

func toMetadata(msg *gmail.Message) *core.MessageMetadata {
	meta := &core.MessageMetadata{
		ID:      msg.Id,
		Subject: defaultSubject,
		Sender:  defaultSender,
		Snippet: html.UnescapeString(msg.Snippet),
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch {
			case strings.EqualFold(h.Name, "Subject") && h.Value != "":
				meta.Subject = h.Value
			case strings.EqualFold(h.Name, "From") && h.Value != "":
				meta.Sender = h.Value
			}
		}
	}

	for _, label := range msg.LabelIds {
		if label == unreadLabel {
			meta.Unread = true
			break
		}
	}

	return meta
}

// translateError maps a Gmail failure onto the upstream error taxonomy.
// Rate limits and server errors are retryable, auth and missing resources
// are fatal. Transport errors are returned as-is.
func translateError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return core.NewFatalError(fmt.Errorf("gmail api unavailable: %w", err))
	}

	if isGrantFailure(err) {
		return core.NewFatalError(fmt.Errorf("%w: %w", core.ErrReauthRequired, err))
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	switch {
	case gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError:
		return core.NewRetryableError(err, retryAfter(gerr.Header))
	case gerr.Code == http.StatusUnauthorized:
		return core.NewFatalError(fmt.Errorf("%w: %w", core.ErrReauthRequired, err))
	case gerr.Code == http.StatusForbidden, gerr.Code == http.StatusNotFound, gerr.Code == http.StatusBadRequest:
		return core.NewFatalError(err)
	default:
		return err
	}
}

// isGrantFailure reports whether the token endpoint rejected the user's
// refresh token. Server-side token endpoint failures are not grant failures.
func isGrantFailure(err error) bool {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return false
	}
	return rerr.Response == nil || rerr.Response.StatusCode < http.StatusInternalServerError
}

func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	if secs, err := strconv.Atoi(h.Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// NewBreaker creates the circuit breaker guarding Gmail calls. It is shared
// by every user, so only failures of the service itself count: client
// errors, rejected grants and cancelled requests do not.
func NewBreaker(timeout time.Duration, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			if err == nil || isGrantFailure(err) || errors.Is(err, context.Canceled) {
				return true
			}
			var gerr *googleapi.Error
			return errors.As(err, &gerr) && gerr.Code < http.StatusInternalServerError && gerr.Code != http.StatusTooManyRequests
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}
