package ports

import "context"

// Identity is the verified result of a completed sign-in
type Identity struct {
	UserID       string
	Email        string
	Name         string
	RefreshToken string
}

// Authenticator runs the OAuth authorization-code flow
type Authenticator interface {
	// AuthURL returns the consent page URL carrying state
	AuthURL(state string) string

	// Exchange trades an authorization code for a verified identity
	Exchange(ctx context.Context, code string) (*Identity, error)

	// Configured reports whether client credentials are present
	Configured() bool
}

// TokenCipher protects refresh tokens at rest
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
