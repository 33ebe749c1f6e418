package ports

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a session id is unknown or expired
var ErrSessionNotFound = errors.New("session not found")

// Session holds the server-side state behind a session cookie
type Session struct {
	ID string
	// OAuthState is the pending authorization-code state, if any
	OAuthState string
	UserID     string
	Email      string
	Name       string
	// RefreshToken is encrypted with the TokenCipher
	RefreshToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Authenticated reports whether the session belongs to a signed-in user
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != "" && s.RefreshToken != ""
}

// SessionStore defines the interface for session persistence
type SessionStore interface {
	// Create starts a new empty session
	Create(ctx context.Context) (*Session, error)

	// Get retrieves a live session by id
	Get(ctx context.Context, id string) (*Session, error)

	// Save stores changes to an existing session
	Save(ctx context.Context, session *Session) error

	// Delete removes a session
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions
	Cleanup(ctx context.Context) error
}
