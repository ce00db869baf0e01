package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMirror publishes aggregate snapshots to Redis so dashboards served by other
// processes can read them. The in-process Cache stays authoritative.
type RedisMirror struct {
	client *redis.Client
	prefix string
}

// NewRedisMirror wraps client. Keys are namespaced with prefix.
func NewRedisMirror(client *redis.Client, prefix string) *RedisMirror {
	return &RedisMirror{client: client, prefix: prefix}
}

// Publish stores value as JSON under key for ttl.
func (m *RedisMirror) Publish(ctx context.Context, key string, value any, ttl time.Duration) error {
	if m == nil || m.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", key, err)
	}
	return m.client.Set(ctx, m.prefix+key, payload, ttl).Err()
}

// Fetch decodes the snapshot stored under key into dst.
func (m *RedisMirror) Fetch(ctx context.Context, key string, dst any) (bool, error) {
	if m == nil || m.client == nil {
		return false, nil
	}
	payload, err := m.client.Get(ctx, m.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return true, nil
}

// InvalidatePattern deletes every mirrored key matching the glob pattern.
func (m *RedisMirror) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	if m == nil || m.client == nil {
		return 0, nil
	}
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := m.client.Scan(ctx, cursor, m.prefix+pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := m.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("delete %s: %w", pattern, err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}
