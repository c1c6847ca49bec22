package session

import (
	"testing"
	"time"

	"github.com/MrEthical07/authflow/internal/clock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type storeFactory struct {
	name string
	new  func(t *testing.T) Store
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{name: "memory", new: func(*testing.T) Store { return NewMemoryStore() }},
		{name: "redis", new: func(t *testing.T) Store {
			t.Helper()
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("miniredis start: %v", err)
			}
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() {
				rdb.Close()
				mr.Close()
			})
			return NewRedisStore(rdb, "test")
		}},
	}
}

func newTestRegistry(t *testing.T, store Store) (*Registry, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(testEpoch)
	return NewRegistry(store, nil, clk, Config{}), clk
}
