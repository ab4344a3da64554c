package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Em-Cyborg/WAF-Service/domain/session"
	"github.com/Em-Cyborg/WAF-Service/ports"
)

func TestSessionStore_CreateGetDelete(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	now := time.Now().UTC()

	sess := session.New("u1", "u1@example.com", "User", "", now)
	if err := store.Create(ctx, "tok1", sess); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "tok1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != "u1" || got.Email != "u1@example.com" {
		t.Errorf("got %+v", got)
	}

	existed, err := store.Delete(ctx, "tok1")
	if err != nil || !existed {
		t.Errorf("Delete = (%v, %v), want (true, nil)", existed, err)
	}
	// idempotent
	existed, err = store.Delete(ctx, "tok1")
	if err != nil || existed {
		t.Errorf("second Delete = (%v, %v), want (false, nil)", existed, err)
	}

	if _, err := store.Get(ctx, "tok1"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestSessionStore_Replace(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	now := time.Now().UTC()

	sess := session.New("u1", "e", "n", "", now)
	store.Create(ctx, "old", sess)

	if err := store.Replace(ctx, "old", "new", sess.Renew(now)); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if _, err := store.Get(ctx, "old"); !errors.Is(err, ports.ErrNotFound) {
		t.Error("old token must be gone after replace")
	}
	if _, err := store.Get(ctx, "new"); err != nil {
		t.Errorf("new token must exist after replace: %v", err)
	}

	if err := store.Replace(ctx, "old", "newer", sess); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("replace of missing token: err = %v, want ErrNotFound", err)
	}
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	now := time.Now().UTC()

	// Expired well in the past, expired exactly at now, and live.
	past := session.New("a", "e", "n", "", now.Add(-48*time.Hour))
	edge := session.New("b", "e", "n", "", now.Add(-24*time.Hour)) // expires exactly at now
	live := session.New("c", "e", "n", "", now)
	store.Create(ctx, "past", past)
	store.Create(ctx, "edge", edge)
	store.Create(ctx, "live", live)

	removed, err := store.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1 (strictly before now)", removed)
	}
	if _, err := store.Get(ctx, "edge"); err != nil {
		t.Error("session expiring exactly at now must survive the sweep")
	}
	if _, err := store.Get(ctx, "live"); err != nil {
		t.Error("live session must survive the sweep")
	}
}

func TestSessionStore_ConcurrentAccess(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tok := session.GenerateToken()
			store.Create(ctx, tok, session.New("u", "e", "n", "", now))
			store.Get(ctx, tok)
			if n%2 == 0 {
				store.Delete(ctx, tok)
			}
		}(i)
	}
	wg.Wait()

	if store.Len() != 25 {
		t.Errorf("Len = %d, want 25", store.Len())
	}
}
