package task

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Aftab-Fury/Task-Manager/database"
	"github.com/Aftab-Fury/Task-Manager/domain/user"
	"github.com/Aftab-Fury/Task-Manager/modules/cache"
)

// fakeUsers is an in-memory UserPort.
type fakeUsers struct {
	profiles map[uint]user.Profile
	calls    int
}

func newFakeUsers(usernames ...string) *fakeUsers {
	f := &fakeUsers{profiles: map[uint]user.Profile{}}
	for i, name := range usernames {
		id := uint(i + 1)
		f.profiles[id] = user.Profile{ID: id, Username: name, Email: name + "@example.com"}
	}
	return f
}

func (f *fakeUsers) FindUsers(_ context.Context, ids []uint) ([]user.Profile, error) {
	f.calls++
	out := []user.Profile{}
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) FindUserByUsername(_ context.Context, username string) (*user.Profile, error) {
	for _, p := range f.profiles {
		if p.Username == username {
			return &p, nil
		}
	}
	return nil, user.ErrNotFound
}

// mapCache is an in-memory CacheService.
type mapCache struct {
	mu    sync.Mutex
	data  map[string][]byte
	stats cache.Stats
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		c.stats.Misses++
		return false, nil
	}
	c.stats.Hits++
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value any) error {
	return c.SetWithTTL(ctx, key, value, 0)
}

func (c *mapCache) SetWithTTL(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *mapCache) Stats() cache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *mapCache) Close() error { return nil }

// fakeClock returns a fixed instant that tests advance explicitly.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func setupTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.Open("sqlite", ":memory:", false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	repo := NewRepository(db)
	if err := repo.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return repo
}

func ptr(s string) *string { return &s }
