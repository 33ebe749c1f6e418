package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/idtoken"

	"github.com/mikey/inbox-classifier/internal/ports"
)

// ValidateFunc verifies a Google ID token for audience
type ValidateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// GoogleOAuth runs the Google authorization-code flow with offline access
// to the user's Gmail
type GoogleOAuth struct {
	config   *oauth2.Config
	validate ValidateFunc
	logger   *zap.Logger
}

// NewGoogleOAuth creates a new Google OAuth helper
func NewGoogleOAuth(clientID, clientSecret, redirectURL string, logger *zap.Logger) *GoogleOAuth {
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"openid",
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
				gmail.GmailReadonlyScope,
			},
			Endpoint: google.Endpoint,
		},
		validate: idtoken.Validate,
		logger:   logger,
	}
}

// WithEndpoint overrides the OAuth endpoint and the ID token validator
func (g *GoogleOAuth) WithEndpoint(endpoint oauth2.Endpoint, validate ValidateFunc) *GoogleOAuth {
	g.config.Endpoint = endpoint
	if validate != nil {
		g.validate = validate
	}
	return g
}

// Config returns the OAuth client configuration, used to refresh tokens
func (g *GoogleOAuth) Config() *oauth2.Config {
	return g.config
}

// Configured reports whether client credentials are present
func (g *GoogleOAuth) Configured() bool {
	return g.config.ClientID != "" && g.config.ClientSecret != ""
}

// AuthURL returns the consent page URL. Consent is always prompted so that
// Google returns a refresh token.
func (g *GoogleOAuth) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a verified identity
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*ports.Identity, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawID, _ := token.Extra("id_token").(string)
	if rawID == "" {
		return nil, errors.New("token response carries no id_token")
	}

	payload, err := g.validate(ctx, rawID, g.config.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}
	if payload.Subject == "" {
		return nil, errors.New("id token has no subject")
	}

	if token.RefreshToken == "" {
		return nil, errors.New("no refresh token returned; revoke access and sign in again")
	}

	identity := &ports.Identity{
		UserID:       payload.Subject,
		RefreshToken: token.RefreshToken,
	}
	identity.Email, _ = payload.Claims["email"].(string)
	identity.Name, _ = payload.Claims["name"].(string)

	g.logger.Info("User signed in", zap.String("user_id", identity.UserID))
	return identity, nil
}
