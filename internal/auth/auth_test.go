package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

func TestSecretBoxCipher_RoundTrip(t *testing.T) {
	c, err := NewSecretBoxCipher("s3cret", zap.NewNop())
	require.NoError(t, err)

	sealed, err := c.Encrypt("1//refresh-token")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "refresh-token")

	other, err := c.Encrypt("1//refresh-token")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, other)

	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "1//refresh-token", plain)

	same, err := NewSecretBoxCipher("s3cret", zap.NewNop())
	require.NoError(t, err)
	plain, err = same.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "1//refresh-token", plain)
}

func TestSecretBoxCipher_Rejects(t *testing.T) {
	c, err := NewSecretBoxCipher("s3cret", zap.NewNop())
	require.NoError(t, err)
	wrong, err := NewSecretBoxCipher("other", zap.NewNop())
	require.NoError(t, err)

	sealed, err := c.Encrypt("token")
	require.NoError(t, err)

	_, err = wrong.Decrypt(sealed)
	assert.Error(t, err)
	_, err = c.Decrypt("!!not base64!!")
	assert.Error(t, err)
	_, err = c.Decrypt("c2hvcnQ")
	assert.Error(t, err)
}

func TestSecretBoxCipher_RandomKey(t *testing.T) {
	a, err := NewSecretBoxCipher("", zap.NewNop())
	require.NoError(t, err)
	b, err := NewSecretBoxCipher("", zap.NewNop())
	require.NoError(t, err)

	sealed, err := a.Encrypt("token")
	require.NoError(t, err)
	_, err = b.Decrypt(sealed)
	assert.Error(t, err)
}

func TestGoogleOAuth_AuthURL(t *testing.T) {
	g := NewGoogleOAuth("client-id", "secret", "http://localhost:5000/auth/callback", zap.NewNop())

	u, err := url.Parse(g.AuthURL("state-123"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "gmail.readonly")
	assert.True(t, g.Configured())
	assert.False(t, NewGoogleOAuth("", "", "", zap.NewNop()).Configured())
}

func tokenServer(t *testing.T, body string) oauth2.Endpoint {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(raw))
		assert.Equal(t, "auth-code", form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
}

func TestGoogleOAuth_Exchange(t *testing.T) {
	endpoint := tokenServer(t, `{
		"access_token": "ya29.access",
		"token_type": "Bearer",
		"expires_in": 3600,
		"refresh_token": "1//refresh",
		"id_token": "header.payload.sig"
	}`)
	validate := func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
		assert.Equal(t, "header.payload.sig", token)
		assert.Equal(t, "client-id", audience)
		return &idtoken.Payload{
			Subject: "1098765",
			Claims:  map[string]interface{}{"email": "ada@example.com", "name": "Ada"},
		}, nil
	}
	g := NewGoogleOAuth("client-id", "secret", "http://localhost/cb", zap.NewNop()).WithEndpoint(endpoint, validate)

	identity, err := g.Exchange(context.Background(), "auth-code")

	require.NoError(t, err)
	assert.Equal(t, "1098765", identity.UserID)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.Equal(t, "Ada", identity.Name)
	assert.Equal(t, "1//refresh", identity.RefreshToken)
}

func TestGoogleOAuth_ExchangeFailures(t *testing.T) {
	ok := func(context.Context, string, string) (*idtoken.Payload, error) {
		return &idtoken.Payload{Subject: "1"}, nil
	}
	tests := []struct {
		name     string
		body     string
		validate ValidateFunc
	}{
		{
			name:     "missing id token",
			body:     `{"access_token": "a", "token_type": "Bearer", "refresh_token": "r"}`,
			validate: ok,
		},
		{
			name: "invalid id token",
			body: `{"access_token": "a", "token_type": "Bearer", "refresh_token": "r", "id_token": "x"}`,
			validate: func(context.Context, string, string) (*idtoken.Payload, error) {
				return nil, errors.New("bad signature")
			},
		},
		{
			name:     "missing refresh token",
			body:     `{"access_token": "a", "token_type": "Bearer", "id_token": "x"}`,
			validate: ok,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGoogleOAuth("client-id", "secret", "http://localhost/cb", zap.NewNop()).
				WithEndpoint(tokenServer(t, tt.body), tt.validate)

			_, err := g.Exchange(context.Background(), "auth-code")
			assert.Error(t, err)
		})
	}
}
