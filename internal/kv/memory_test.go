package kv

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreSetGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Error("missing key reported as present")
	}

	if err := s.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, ok, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || val != "v" {
		t.Errorf("Get = (%q, %v), want (\"v\", true)", val, ok)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	if err := s.Set(ctx, "k", "v", 10*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if ok, _ := s.Exists(ctx, "k"); !ok {
		t.Error("key should exist before expiry")
	}

	now = now.Add(11 * time.Minute)
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Error("key should be gone after expiry")
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("Get should miss after expiry")
	}
}

func TestMemoryStoreSetNX(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	ok, err := s.SetNX(ctx, "k", "first", 10*time.Minute)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if !ok {
		t.Fatal("first SetNX should win")
	}

	ok, _ = s.SetNX(ctx, "k", "second", 10*time.Minute)
	if ok {
		t.Error("second SetNX before expiry should lose")
	}
	val, _, _ := s.Get(ctx, "k")
	if val != "first" {
		t.Errorf("value = %q, want \"first\" (SetNX must not overwrite)", val)
	}

	// After expiry the key is free again.
	now = now.Add(11 * time.Minute)
	ok, _ = s.SetNX(ctx, "k", "third", 10*time.Minute)
	if !ok {
		t.Error("SetNX after expiry should win")
	}
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	if err := s.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	now = now.Add(1000 * time.Hour)
	if ok, _ := s.Exists(ctx, "k"); !ok {
		t.Error("zero-TTL key must not expire")
	}
}
