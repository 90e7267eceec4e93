package service

import (
	"context"
	"encoding/json"
	"time"

	"authgate/internal/cache"
	"authgate/internal/model"
)

const (
	userListCacheKey = "users:all"
	userListCacheTTL = 5 * time.Minute
)

// UserListCache caches the full user listing in Redis. Every mutation of
// a user row invalidates it; a cold or unreachable Redis degrades to
// hitting the database.
type UserListCache struct {
	client *cache.Client
}

// NewUserListCache wraps a Redis client for user list caching.
func NewUserListCache(client *cache.Client) *UserListCache {
	return &UserListCache{client: client}
}

func (c *UserListCache) Get(ctx context.Context) ([]model.User, bool) {
	if c == nil {
		return nil, false
	}
	data, _ := c.client.Get(ctx, userListCacheKey)
	if data == nil {
		return nil, false
	}
	var users []model.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, false
	}
	return users, true
}

func (c *UserListCache) Set(ctx context.Context, users []model.User) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(users)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, userListCacheKey, payload, userListCacheTTL)
}

func (c *UserListCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	_ = c.client.Delete(ctx, userListCacheKey)
}
