package ports

import (
	"context"

	"github.com/mikey/inbox-classifier/internal/core"
)

// MessageSourceProvider opens a user's mailbox
type MessageSourceProvider interface {
	// SourceFor returns a message source authorized by the decrypted refresh token
	SourceFor(ctx context.Context, refreshToken string) (core.MessageSource, error)
}
