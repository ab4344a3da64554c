// Package session provides the ephemeral login session value type.
// Sessions are process-local and non-persistent by design: a restart
// invalidates all of them.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// TTL is the absolute session lifetime. There is no sliding expiry;
// refresh issues a whole new session instead.
const TTL = 24 * time.Hour

// Session holds the identity claims bound to one opaque token.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New creates a session with a fresh 24h expiry.
func New(userID, email, name, picture string, now time.Time) Session {
	return Session{
		UserID:    userID,
		Email:     email,
		Name:      name,
		Picture:   picture,
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
	}
}

// Renew returns a copy carrying the same identity claims with a fresh
// 24h expiry, used when rotating tokens.
func (s Session) Renew(now time.Time) Session {
	return New(s.UserID, s.Email, s.Name, s.Picture, now)
}

// ExpiredAt reports whether the session is expired at the given instant.
func (s Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// GenerateToken produces an opaque unguessable session token: 32 random
// bytes, URL-safe base64 without padding.
func GenerateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed")
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
