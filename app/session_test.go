package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Em-Cyborg/WAF-Service/adapters/clock"
	"github.com/Em-Cyborg/WAF-Service/adapters/memory"
	"github.com/Em-Cyborg/WAF-Service/domain/session"
)

func newSessionFixture() (*SessionService, *memory.SessionStore, *clock.Fake) {
	store := memory.NewSessionStore()
	fake := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewSessionService(store, fake, zerolog.Nop()), store, fake
}

func TestSessionCreateAndValidate(t *testing.T) {
	svc, _, _ := newSessionFixture()
	ctx := context.Background()

	token, sess, err := svc.Create(ctx, "user1", "u@example.com", "User One", "pic.png")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(token) != 43 {
		t.Errorf("token length = %d, want 43", len(token))
	}
	if sess.ExpiresAt.Sub(sess.CreatedAt) != session.TTL {
		t.Errorf("ttl = %v, want %v", sess.ExpiresAt.Sub(sess.CreatedAt), session.TTL)
	}

	got, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.UserID != "user1" || got.Email != "u@example.com" {
		t.Errorf("session = %+v", got)
	}
}

func TestSessionValidateRejectsUnknownAndEmpty(t *testing.T) {
	svc, _, _ := newSessionFixture()
	ctx := context.Background()

	if _, err := svc.Validate(ctx, ""); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("empty token err = %v, want ErrInvalidSession", err)
	}
	if _, err := svc.Validate(ctx, "no-such-token"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("unknown token err = %v, want ErrInvalidSession", err)
	}
}

func TestSessionExpiryDeletesOnValidate(t *testing.T) {
	svc, store, fake := newSessionFixture()
	ctx := context.Background()

	token, _, _ := svc.Create(ctx, "user1", "", "", "")
	fake.Advance(session.TTL + time.Minute)

	if _, err := svc.Validate(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expired err = %v, want ErrInvalidSession", err)
	}
	// The expired session was removed as a side effect.
	if store.Len() != 0 {
		t.Errorf("store size = %d, want 0 after expired validate", store.Len())
	}
}

func TestSessionRefreshRotatesToken(t *testing.T) {
	svc, _, fake := newSessionFixture()
	ctx := context.Background()

	token, _, _ := svc.Create(ctx, "user1", "", "", "")
	fake.Advance(time.Hour)

	newToken, renewed, err := svc.Refresh(ctx, token)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if newToken == token {
		t.Error("refresh must rotate the token")
	}
	if renewed.ExpiresAt.Sub(fake.Now()) != session.TTL {
		t.Errorf("renewed expiry = %v from now, want %v", renewed.ExpiresAt.Sub(fake.Now()), session.TTL)
	}

	// Old token is dead, new one works.
	if _, err := svc.Validate(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("old token err = %v, want ErrInvalidSession", err)
	}
	if _, err := svc.Validate(ctx, newToken); err != nil {
		t.Errorf("new token err = %v", err)
	}
}

func TestSessionDeleteIdempotent(t *testing.T) {
	svc, _, _ := newSessionFixture()
	ctx := context.Background()

	token, _, _ := svc.Create(ctx, "user1", "", "", "")
	if err := svc.Delete(ctx, token); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, token); err != nil {
		t.Errorf("second Delete err = %v, want nil", err)
	}
	if _, err := svc.Validate(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("validate after delete err = %v, want ErrInvalidSession", err)
	}
}

func TestSessionSweep(t *testing.T) {
	svc, store, fake := newSessionFixture()
	ctx := context.Background()

	svc.Create(ctx, "old1", "", "", "")
	svc.Create(ctx, "old2", "", "", "")
	fake.Advance(session.TTL + time.Minute)
	fresh, _, _ := svc.Create(ctx, "fresh", "", "", "")

	removed, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if store.Len() != 1 {
		t.Errorf("store size = %d, want 1", store.Len())
	}
	if _, err := svc.Validate(ctx, fresh); err != nil {
		t.Errorf("fresh session err = %v", err)
	}
}
