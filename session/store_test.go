package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func savedRecord(t *testing.T, s Store, id, user string, access, refresh byte) Record {
	t.Helper()
	r := Record{
		ID:               id,
		UserID:           user,
		AccessHash:       [32]byte{access},
		RefreshHash:      [32]byte{refresh},
		CreatedAt:        testEpoch,
		ExpiresAt:        testEpoch.Add(time.Hour),
		RefreshExpiresAt: testEpoch.Add(24 * time.Hour),
	}
	if err := s.Save(context.Background(), r); err != nil {
		t.Fatalf("save: %v", err)
	}
	return r
}

func TestStoreConsumeRefreshIsSingleUse(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.new(t)
			ctx := context.Background()
			r := savedRecord(t, s, "sid-1", "u-1", 1, 2)

			got, err := s.ConsumeRefresh(ctx, r.RefreshHash, testEpoch.Add(time.Minute))
			if err != nil {
				t.Fatalf("consume: %v", err)
			}
			if got.ID != r.ID {
				t.Fatalf("expected %s, got %s", r.ID, got.ID)
			}

			if _, err := s.ConsumeRefresh(ctx, r.RefreshHash, testEpoch); !errors.Is(err, ErrRefreshNotFound) {
				t.Fatalf("expected ErrRefreshNotFound on reuse, got %v", err)
			}
			if _, err := s.Get(ctx, r.AccessHash); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected paired access entry removed, got %v", err)
			}
			list, err := s.ListForUser(ctx, "u-1")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 0 {
				t.Fatalf("expected empty index, got %d", len(list))
			}
		})
	}
}

func TestStoreExpiredRefreshLeftInPlace(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.new(t)
			ctx := context.Background()
			r := savedRecord(t, s, "sid-1", "u-1", 1, 2)

			late := r.RefreshExpiresAt.Add(time.Second)
			for i := 0; i < 2; i++ {
				if _, err := s.ConsumeRefresh(ctx, r.RefreshHash, late); !errors.Is(err, ErrRefreshExpired) {
					t.Fatalf("attempt %d: expected ErrRefreshExpired, got %v", i, err)
				}
			}
		})
	}
}

func TestStoreDeleteAccessKeepsRefresh(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.new(t)
			ctx := context.Background()
			r := savedRecord(t, s, "sid-1", "u-1", 1, 2)

			if err := s.DeleteAccess(ctx, r.AccessHash); err != nil {
				t.Fatalf("delete access: %v", err)
			}
			if _, err := s.Get(ctx, r.AccessHash); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected access gone, got %v", err)
			}
			if _, err := s.ConsumeRefresh(ctx, r.RefreshHash, testEpoch); err != nil {
				t.Fatalf("refresh should survive access eviction: %v", err)
			}
		})
	}
}

func TestStoreRevokeRemovesPair(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.new(t)
			ctx := context.Background()
			r := savedRecord(t, s, "sid-1", "u-1", 1, 2)

			if _, err := s.Revoke(ctx, r.AccessHash); err != nil {
				t.Fatalf("revoke: %v", err)
			}
			if _, err := s.Revoke(ctx, r.AccessHash); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second revoke, got %v", err)
			}
			if _, err := s.ConsumeRefresh(ctx, r.RefreshHash, testEpoch); !errors.Is(err, ErrRefreshNotFound) {
				t.Fatalf("expected refresh revoked, got %v", err)
			}
		})
	}
}

func TestStoreDeleteAllForUser(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.new(t)
			ctx := context.Background()
			savedRecord(t, s, "sid-1", "u-1", 1, 2)
			savedRecord(t, s, "sid-2", "u-1", 3, 4)
			other := savedRecord(t, s, "sid-3", "u-2", 5, 6)

			n, err := s.DeleteAllForUser(ctx, "u-1")
			if err != nil {
				t.Fatalf("delete all: %v", err)
			}
			if n != 2 {
				t.Fatalf("expected 2 removed, got %d", n)
			}

			list, err := s.ListForUser(ctx, "u-1")
			if err != nil || len(list) != 0 {
				t.Fatalf("expected no sessions for u-1, got %d (%v)", len(list), err)
			}
			if _, err := s.Get(ctx, other.AccessHash); err != nil {
				t.Fatalf("other user's session must survive: %v", err)
			}
		})
	}
}

func TestStoreRevokeAfterDeleteAccessDropsRefresh(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.new(t)
			ctx := context.Background()
			r := savedRecord(t, s, "sid-1", "u-1", 1, 2)

			if err := s.DeleteAccess(ctx, r.AccessHash); err != nil {
				t.Fatalf("delete access: %v", err)
			}
			got, err := s.Revoke(ctx, r.AccessHash)
			if err != nil {
				t.Fatalf("revoke evicted access: %v", err)
			}
			if got.ID != r.ID {
				t.Fatalf("expected %s, got %s", r.ID, got.ID)
			}
			if _, err := s.ConsumeRefresh(ctx, r.RefreshHash, testEpoch); !errors.Is(err, ErrRefreshNotFound) {
				t.Fatalf("expected refresh gone, got %v", err)
			}
			if _, err := s.Revoke(ctx, r.AccessHash); !errors.Is(err, ErrNotFound) {
				t.Fatalf("second revoke: expected ErrNotFound, got %v", err)
			}
			list, err := s.ListForUser(ctx, "u-1")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 0 {
				t.Fatalf("expected empty index, got %d", len(list))
			}
		})
	}
}
