package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/ports"
)

// currentSession returns the live session named by the request cookie, or nil
func (s *Server) currentSession(r *http.Request) *ports.Session {
	cookie, err := r.Cookie(s.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	sess, err := s.deps.Sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, ports.ErrSessionNotFound) {
			s.logger.Error("Failed to load session", zap.Error(err))
		}
		return nil
	}
	return sess
}

// ensureSession returns the current session or starts a new one and sets its cookie
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (*ports.Session, error) {
	if sess := s.currentSession(r); sess != nil {
		return sess, nil
	}

	sess, err := s.deps.Sessions.Create(r.Context())
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, s.sessionCookie(sess.ID, int(s.opts.SessionTTL.Seconds())))
	return sess, nil
}

func (s *Server) sessionCookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if s.opts.CookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: sameSite,
	}
}

func (s *Server) frontendRedirect(w http.ResponseWriter, r *http.Request, key, value string) {
	target := strings.TrimSuffix(s.opts.FrontendURL, "/") + "/auth/callback?" +
		url.Values{key: []string{value}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.ensureSession(w, r)
	if err != nil {
		s.logger.Error("Failed to create session", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to initiate authentication")
		return
	}

	sess.OAuthState = uuid.NewString()
	if err := s.deps.Sessions.Save(r.Context(), sess); err != nil {
		s.logger.Error("Failed to save OAuth state", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to initiate authentication")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"auth_url": s.deps.Auth.AuthURL(sess.OAuthState),
	})
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	code := query.Get("code")
	if code == "" {
		s.logger.Warn("No authorization code received", zap.String("error", query.Get("error")))
		s.frontendRedirect(w, r, "error", "no_code")
		return
	}

	sess := s.currentSession(r)
	state := query.Get("state")
	if sess == nil || sess.OAuthState == "" || state != sess.OAuthState {
		s.logger.Warn("OAuth state mismatch")
		s.frontendRedirect(w, r, "error", "state_mismatch")
		return
	}

	identity, err := s.deps.Auth.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Error("OAuth exchange failed", zap.Error(err))
		s.frontendRedirect(w, r, "error", "auth_failed")
		return
	}

	encrypted, err := s.deps.Cipher.Encrypt(identity.RefreshToken)
	if err != nil {
		s.logger.Error("Failed to encrypt refresh token", zap.Error(err))
		s.frontendRedirect(w, r, "error", "auth_failed")
		return
	}

	// the pre-login session id is never promoted
	authed, err := s.deps.Sessions.Create(r.Context())
	if err != nil {
		s.logger.Error("Failed to create session", zap.Error(err))
		s.frontendRedirect(w, r, "error", "auth_failed")
		return
	}
	authed.UserID = identity.UserID
	authed.Email = identity.Email
	authed.Name = identity.Name
	authed.RefreshToken = encrypted
	if err := s.deps.Sessions.Save(r.Context(), authed); err != nil {
		s.logger.Error("Failed to save session", zap.Error(err))
		s.frontendRedirect(w, r, "error", "auth_failed")
		return
	}
	if err := s.deps.Sessions.Delete(r.Context(), sess.ID); err != nil {
		s.logger.Warn("Failed to delete pre-login session", zap.Error(err))
	}
	http.SetCookie(w, s.sessionCookie(authed.ID, int(s.opts.SessionTTL.Seconds())))

	s.logger.Info("User authenticated", zap.String("user_id", identity.UserID))
	s.frontendRedirect(w, r, "success", "true")
}

func (s *Server) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{
		"authenticated": s.currentSession(r).Authenticated(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID := ""
	if sess := s.currentSession(r); sess != nil {
		sessionID = sess.ID
	}
	s.endSession(w, r, sessionID)
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// endSession deletes the session and expires its cookie. A failed delete
// still expires the cookie.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if sessionID != "" {
		if err := s.deps.Sessions.Delete(context.WithoutCancel(r.Context()), sessionID); err != nil {
			s.logger.Error("Failed to delete session", zap.Error(err))
		}
	}
	http.SetCookie(w, s.sessionCookie("", -1))
}

func (s *Server) handleDebugSession(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(r)
	body := map[string]interface{}{
		"has_session":       sess != nil,
		"has_user_id":       sess != nil && sess.UserID != "",
		"has_refresh_token": sess != nil && sess.RefreshToken != "",
	}
	if sess != nil {
		body["user_id"] = sess.UserID
		body["user_email"] = sess.Email
		body["expires_at"] = sess.ExpiresAt
	}
	s.writeJSON(w, http.StatusOK, body)
}
