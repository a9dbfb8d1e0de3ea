package service

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memorySweepEvery fija cada cuantas escrituras los stores en memoria purgan claves vencidas.
const memorySweepEvery = 128

// OTPRateLimiter limita la frecuencia de solicitudes de OTP por clave.
type OTPRateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

type otpRateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
	writes int
	now    func() time.Time
}

// NewOTPRateLimiter crea un rate limiter en memoria.
func NewOTPRateLimiter(window time.Duration, max int) OTPRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &otpRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *otpRateLimiter) Allow(_ context.Context, key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)
	l.writes++
	if l.writes%memorySweepEvery == 0 {
		l.sweepLocked(cutoff)
	}
	entries := l.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

// sweepLocked descarta claves cuyo ultimo hit ya salio de la ventana.
func (l *otpRateLimiter) sweepLocked(cutoff time.Time) {
	for key, entries := range l.hits {
		if len(entries) == 0 || !entries[len(entries)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}

func otpLimiterKey(emailAddr string, otpType string) string {
	return normalizeEmail(emailAddr) + ":" + otpType
}
