package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginAttemptTracker cuenta fallos de login consecutivos por email.
// Se crea al arrancar el proceso y se pasa al AuthService.
type LoginAttemptTracker interface {
	RecordFailure(ctx context.Context, email string) int
	Failures(ctx context.Context, email string) int
	Reset(ctx context.Context, email string)
}

type attemptEntry struct {
	count   int
	expires time.Time
}

type memoryLoginAttempts struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]attemptEntry
	writes  int
	now     func() time.Time
}

func NewLoginAttemptTracker(window time.Duration) LoginAttemptTracker {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &memoryLoginAttempts{
		window:  window,
		entries: make(map[string]attemptEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *memoryLoginAttempts) RecordFailure(_ context.Context, email string) int {
	key := normalizeEmail(email)
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.writes++
	if m.writes%memorySweepEvery == 0 {
		for k, e := range m.entries {
			if !now.Before(e.expires) {
				delete(m.entries, k)
			}
		}
	}
	entry, ok := m.entries[key]
	if !ok || !now.Before(entry.expires) {
		entry = attemptEntry{expires: now.Add(m.window)}
	}
	entry.count++
	m.entries[key] = entry
	return entry.count
}

func (m *memoryLoginAttempts) Failures(_ context.Context, email string) int {
	key := normalizeEmail(email)
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return 0
	}
	if !m.now().Before(entry.expires) {
		delete(m.entries, key)
		return 0
	}
	return entry.count
}

func (m *memoryLoginAttempts) Reset(_ context.Context, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, normalizeEmail(email))
}

type redisCounterClient interface {
	redisEvaler
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisLoginAttempts struct {
	client redisCounterClient
	window time.Duration
	prefix string
}

func NewRedisLoginAttemptTracker(client *redis.Client, window time.Duration) LoginAttemptTracker {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &redisLoginAttempts{
		client: client,
		window: window,
		prefix: "auth:login_fail:",
	}
}

func (r *redisLoginAttempts) key(email string) string {
	return r.prefix + strings.ToLower(strings.TrimSpace(email))
}

func (r *redisLoginAttempts) RecordFailure(ctx context.Context, email string) int {
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()
	n, err := r.client.Eval(ctx, incrWindowScript, []string{r.key(email)}, windowSeconds(r.window)).Int()
	if err != nil {
		return 0
	}
	return n
}

func (r *redisLoginAttempts) Failures(ctx context.Context, email string) int {
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()
	n, err := r.client.Get(ctx, r.key(email)).Int()
	if err != nil {
		return 0
	}
	return n
}

func (r *redisLoginAttempts) Reset(ctx context.Context, email string) {
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()
	_ = r.client.Del(ctx, r.key(email)).Err()
}
