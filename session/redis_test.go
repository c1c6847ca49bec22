package session

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisRevokeAfterAccessKeyExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	s := NewRedisStore(rdb, "test")
	ctx := context.Background()
	r := savedRecord(t, s, "sid-1", "u-1", 1, 2)

	mr.FastForward(2 * time.Hour)
	if _, err := s.Get(ctx, r.AccessHash); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected access key expired, got %v", err)
	}

	got, err := s.Revoke(ctx, r.AccessHash)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got.ID != r.ID {
		t.Fatalf("expected %s, got %s", r.ID, got.ID)
	}
	if _, err := s.ConsumeRefresh(ctx, r.RefreshHash, testEpoch.Add(2*time.Hour)); !errors.Is(err, ErrRefreshNotFound) {
		t.Fatalf("expected refresh gone, got %v", err)
	}
	if mr.Exists("test:a:" + hex.EncodeToString(r.AccessHash[:])) {
		t.Fatal("access link must be removed")
	}
}

func TestRedisConsumeRefreshRemovesAccessLink(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	s := NewRedisStore(rdb, "test")
	r := savedRecord(t, s, "sid-1", "u-1", 1, 2)

	if _, err := s.ConsumeRefresh(context.Background(), r.RefreshHash, testEpoch); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if mr.Exists("test:a:" + hex.EncodeToString(r.AccessHash[:])) {
		t.Fatal("access link must be removed")
	}
}
