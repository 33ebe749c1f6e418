package gmail

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/mikey/inbox-classifier/internal/core"
)

// Provider builds per-user Gmail sources from stored refresh tokens
type Provider struct {
	oauthConfig *oauth2.Config
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
	opts        []option.ClientOption
}

// NewProvider creates a new Gmail source provider. Extra client options are
// appended to every service, e.g. to override the endpoint.
func NewProvider(oauthConfig *oauth2.Config, breakerTimeout time.Duration, logger *zap.Logger, opts ...option.ClientOption) *Provider {
	return &Provider{
		oauthConfig: oauthConfig,
		breaker:     NewBreaker(breakerTimeout, logger),
		logger:      logger,
		opts:        opts,
	}
}

// SourceFor returns a message source acting as the owner of refreshToken
func (p *Provider) SourceFor(ctx context.Context, refreshToken string) (core.MessageSource, error) {
	if refreshToken == "" {
		return nil, core.NewFatalError(fmt.Errorf("no refresh token on record"))
	}

	ts := p.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, p.opts...)

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return NewSource(svc, p.breaker, p.logger), nil
}
