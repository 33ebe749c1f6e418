package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// SecretBoxCipher encrypts refresh tokens with NaCl secretbox
type SecretBoxCipher struct {
	key [32]byte
}

// NewSecretBoxCipher derives the key from secret. Without a secret a random
// key is used and tokens do not survive a restart.
func NewSecretBoxCipher(secret string, logger *zap.Logger) (*SecretBoxCipher, error) {
	c := &SecretBoxCipher{}
	if secret != "" {
		c.key = sha256.Sum256([]byte(secret))
		return c, nil
	}

	if _, err := io.ReadFull(rand.Reader, c.key[:]); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	logger.Warn("No session.encryption_key configured, using a random key; sessions will not survive a restart")
	return c, nil
}

// Encrypt seals plaintext and returns it base64url encoded
func (c *SecretBoxCipher) Encrypt(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt
func (c *SecretBoxCipher) Decrypt(ciphertext string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode token: %w", err)
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", errors.New("token too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", errors.New("failed to decrypt token")
	}
	return string(plain), nil
}
