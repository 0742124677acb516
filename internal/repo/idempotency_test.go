package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatstack/go-chat-api/internal/domain"
)

func TestIdempotency_CreateAndGet(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "u1", "s1", "key-1", 200, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || rec.Status != 200 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "u1", "s1", "key-1", time.Now().UTC())
	if err != nil || got == nil {
		t.Fatalf("GetIdempotency: rec=%v err=%v", got, err)
	}

	// Wrong user or session does not match.
	if _, err := GetIdempotency(ctx, db, "u2", "s1", "key-1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "u1", "", "key-1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty session, got %v", err)
	}
}

func TestIdempotency_Duplicate(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "s1", "key-1", 200, time.Hour); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "u1", "s1", "key-1", 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Same key under a different session is a distinct operation.
	if _, err := CreateIdempotency(ctx, db, "u1", "s2", "key-1", 200, time.Hour); err != nil {
		t.Fatalf("different session: %v", err)
	}
}

func TestIdempotency_Expired(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "s1", "key-1", 200, -time.Minute); err != nil {
		t.Fatalf("create expired: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "u1", "s1", "key-1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record must not replay, got %v", err)
	}
}
