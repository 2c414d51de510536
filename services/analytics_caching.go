package services

import (
	"context"
	"encoding/json"
	"fmt"
	"main/model"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "onboarding_analytics:latest"

// AnalyticsCache keeps the last successfully computed analytics rollup
// in Redis so the dashboard stays usable while the record store is
// unavailable. The snapshot is a fallback, never the source of truth.
type AnalyticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalyticsCache connects to Redis and verifies the connection.
func NewAnalyticsCache(redisURL string, ttl time.Duration) (*AnalyticsCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &AnalyticsCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// SetSnapshot stores the rollup as the latest snapshot.
func (ac *AnalyticsCache) SetSnapshot(ctx context.Context, data *model.OnboardingAnalyticsData) error {
	if data == nil {
		return fmt.Errorf("cannot cache nil snapshot")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %v", err)
	}

	if err := ac.client.Set(ctx, snapshotKey, payload, ac.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %v", err)
	}
	return nil
}

// GetSnapshot returns the latest snapshot, or nil on a cache miss.
func (ac *AnalyticsCache) GetSnapshot(ctx context.Context) (*model.OnboardingAnalyticsData, error) {
	payload, err := ac.client.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from cache: %v", err)
	}

	var data model.OnboardingAnalyticsData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %v", err)
	}
	return &data, nil
}

// InvalidateSnapshot drops the cached rollup.
func (ac *AnalyticsCache) InvalidateSnapshot(ctx context.Context) error {
	if err := ac.client.Del(ctx, snapshotKey).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %v", err)
	}
	return nil
}

func (ac *AnalyticsCache) IsConnected() bool {
	if ac == nil || ac.client == nil {
		return false
	}
	ctx := context.Background()
	return ac.client.Ping(ctx).Err() == nil
}

// Close closes the Redis connection
func (ac *AnalyticsCache) Close() error {
	return ac.client.Close()
}
