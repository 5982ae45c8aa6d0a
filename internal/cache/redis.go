package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aerohive/missions/config"
	"github.com/aerohive/missions/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client      *redis.Client
	pilotsTTL   time.Duration
	snapshotTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, pilotsTTL, snapshotTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		pilotsTTL:   pilotsTTL,
		snapshotTTL: snapshotTTL,
	}
}

func (c *RedisCache) GetPilots(ctx context.Context, category string) ([]domain.Pilot, error) {
	data, err := c.client.Get(ctx, pilotsKey(category)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var pilots []domain.Pilot
	if err := json.Unmarshal(data, &pilots); err != nil {
		return nil, err
	}
	return pilots, nil
}

func (c *RedisCache) SetPilots(ctx context.Context, category string, pilots []domain.Pilot) error {
	payload, err := json.Marshal(pilots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pilotsKey(category), payload, c.pilotsTTL).Err()
}

func (c *RedisCache) GetSnapshot(ctx context.Context, ref string) (*domain.TrackingSnapshot, error) {
	data, err := c.client.Get(ctx, snapshotKey(ref)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var snap domain.TrackingSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *RedisCache) SetSnapshot(ctx context.Context, ref string, snap *domain.TrackingSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKey(ref), payload, c.snapshotTTL).Err()
}

// InvalidateSnapshot drops the cached projection after a transition so the
// next poll observes the committed state.
func (c *RedisCache) InvalidateSnapshot(ctx context.Context, ref string) error {
	return c.client.Del(ctx, snapshotKey(ref)).Err()
}

func pilotsKey(category string) string {
	if category == "" {
		category = "all"
	}
	return fmt.Sprintf("cache:pilots:%s", category)
}

func snapshotKey(ref string) string {
	return fmt.Sprintf("cache:snapshot:%s", ref)
}
