package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Em-Cyborg/WAF-Service/domain/session"
	"github.com/Em-Cyborg/WAF-Service/ports"
)

// ErrInvalidSession covers missing and expired sessions alike so callers
// cannot distinguish the two.
var ErrInvalidSession = errors.New("invalid or expired session")

// SessionService manages login sessions: opaque tokens mapped to user
// identity with a fixed time-to-live.
type SessionService struct {
	store  ports.SessionStore
	clock  ports.Clock
	logger zerolog.Logger
}

// NewSessionService creates a session service.
func NewSessionService(store ports.SessionStore, clock ports.Clock, logger zerolog.Logger) *SessionService {
	return &SessionService{store: store, clock: clock, logger: logger}
}

// Create mints a fresh token for a logged-in user.
func (s *SessionService) Create(ctx context.Context, userID, email, name, picture string) (string, session.Session, error) {
	token := session.GenerateToken()
	sess := session.New(userID, email, name, picture, s.clock.Now())

	if err := s.store.Create(ctx, token, sess); err != nil {
		return "", session.Session{}, fmt.Errorf("store session: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Msg("session created")
	return token, sess, nil
}

// Validate resolves a token to its session. Expired sessions are deleted
// as a side effect and reported the same way as unknown tokens.
func (s *SessionService) Validate(ctx context.Context, token string) (session.Session, error) {
	if token == "" {
		return session.Session{}, ErrInvalidSession
	}

	sess, err := s.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return session.Session{}, ErrInvalidSession
		}
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}

	if sess.ExpiredAt(s.clock.Now()) {
		if _, err := s.store.Delete(ctx, token); err != nil {
			s.logger.Warn().Err(err).Msg("failed to delete expired session")
		}
		return session.Session{}, ErrInvalidSession
	}
	return sess, nil
}

// Refresh rotates the token and extends the session's expiry. The old
// token stops working the moment the new one exists.
func (s *SessionService) Refresh(ctx context.Context, token string) (string, session.Session, error) {
	sess, err := s.Validate(ctx, token)
	if err != nil {
		return "", session.Session{}, err
	}

	newToken := session.GenerateToken()
	renewed := sess.Renew(s.clock.Now())
	if err := s.store.Replace(ctx, token, newToken, renewed); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return "", session.Session{}, ErrInvalidSession
		}
		return "", session.Session{}, fmt.Errorf("rotate session: %w", err)
	}

	s.logger.Debug().Str("user_id", sess.UserID).Msg("session refreshed")
	return newToken, renewed, nil
}

// Delete logs a session out. Deleting an unknown token is not an error.
func (s *SessionService) Delete(ctx context.Context, token string) error {
	existed, err := s.store.Delete(ctx, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if existed {
		s.logger.Info().Msg("session deleted")
	}
	return nil
}

// Sweep removes expired sessions and returns the count removed.
func (s *SessionService) Sweep(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info().Int("removed", n).Msg("swept expired sessions")
	}
	return n, nil
}
