package web

import (
	"context"

	"github.com/Em-Cyborg/WAF-Service/domain/session"
)

type contextKey string

const sessionKey contextKey = "session"

// withSession stores the resolved session in the request context.
func withSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom extracts the session placed by RequireSession.
func SessionFrom(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(session.Session)
	return s, ok
}
