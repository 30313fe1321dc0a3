// Package cache keeps public profiles in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"heartmatch/models"
)

// Cache is a JSON cache over Redis. A nil *Cache is valid and caches nothing.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to addr and pings it.
func New(ctx context.Context, addr, password string, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	log.Info("connected to Redis", "addr", addr)
	return NewWithClient(client, ttl), nil
}

func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// GetJSON reads key into dest. The bool reports a hit.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil {
		return false, nil
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

func profileKey(userID string) string { return "user:public:" + userID }

func (c *Cache) GetProfile(ctx context.Context, userID string) (*models.PublicProfile, bool) {
	var p models.PublicProfile
	ok, err := c.GetJSON(ctx, profileKey(userID), &p)
	if err != nil {
		log.Warn("profile cache read failed", "user", userID, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &p, true
}

func (c *Cache) SetProfile(ctx context.Context, p models.PublicProfile) {
	if err := c.SetJSON(ctx, profileKey(p.ID.Hex()), p); err != nil {
		log.Warn("profile cache write failed", "user", p.ID.Hex(), "err", err)
	}
}

func (c *Cache) InvalidateProfile(ctx context.Context, userID string) {
	if err := c.Delete(ctx, profileKey(userID)); err != nil {
		log.Warn("profile cache invalidate failed", "user", userID, "err", err)
	}
}
