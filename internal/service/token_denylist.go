package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenDenylist guarda el jti de tokens revocados hasta que vencen.
type TokenDenylist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

type memoryTokenDenylist struct {
	mu    sync.Mutex
	items  map[string]time.Time
	writes int
	now    func() time.Time
}

func NewMemoryTokenDenylist() TokenDenylist {
	return &memoryTokenDenylist{
		items: make(map[string]time.Time),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryTokenDenylist) Add(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(jti) == "" || ttl <= 0 {
		return nil
	}
	now := s.now()
	s.writes++
	if s.writes%memorySweepEvery == 0 {
		for k, exp := range s.items {
			if now.After(exp) {
				delete(s.items, k)
			}
		}
	}
	s.items[jti] = now.Add(ttl)
	return nil
}

func (s *memoryTokenDenylist) Contains(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.items[jti]
	if !ok {
		return false, nil
	}
	if s.now().After(exp) {
		delete(s.items, jti)
		return false, nil
	}
	return true, nil
}

type redisKVClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisTokenDenylist struct {
	client redisKVClient
	prefix string
}

func NewRedisTokenDenylist(client *redis.Client) TokenDenylist {
	if client == nil {
		return nil
	}
	return &redisTokenDenylist{
		client: client,
		prefix: "auth:revoked:",
	}
}

func (s *redisTokenDenylist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" || ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()
	return s.client.Set(ctx, s.prefix+jti, "1", ttl).Err()
}

func (s *redisTokenDenylist) Contains(ctx context.Context, jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
