package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Em-Cyborg/WAF-Service/app"
	"github.com/Em-Cyborg/WAF-Service/domain/session"
)

const sessionCookie = "session_token"

// Login issues a session for an authenticated identity. Identity
// verification happens upstream (the OAuth callback or the dev login);
// this endpoint only mints the session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"user_id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	token, sess, err := h.sessions.Create(r.Context(), req.UserID, req.Email, req.Name, req.Picture)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.setSessionCookie(w, token, sess.ExpiresAt)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"session": sess,
	})
}

// Logout deletes the caller's session. Always succeeds.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.sessionToken(r); token != "" {
		if err := h.sessions.Delete(r.Context(), token); err != nil {
			h.logger.Warn().Err(err).Msg("logout delete failed")
		}
	}
	h.clearSessionCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Refresh rotates the caller's session token and extends its expiry.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r)
	newToken, sess, err := h.sessions.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, app.ErrInvalidSession) {
			h.countSessionFailure("invalid")
			h.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "failed to refresh session")
		return
	}

	h.setSessionCookie(w, newToken, sess.ExpiresAt)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   newToken,
		"session": sess,
	})
}

// Me returns the caller's session identity.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	h.writeJSON(w, http.StatusOK, sess)
}

// RequireSession guards routes behind a valid session, delivered either
// as a cookie or a bearer token.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.sessions.Validate(r.Context(), h.sessionToken(r))
		if err != nil {
			if errors.Is(err, app.ErrInvalidSession) {
				h.countSessionFailure("invalid")
				h.writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			h.writeError(w, http.StatusInternalServerError, "session check failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

func (h *Handler) sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(session.TTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) countSessionFailure(reason string) {
	if h.metrics != nil {
		h.metrics.SessionFailures.WithLabelValues(reason).Inc()
	}
}
