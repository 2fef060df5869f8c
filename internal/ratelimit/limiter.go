// Package ratelimit throttles booking create attempts per user and per client IP.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Config struct {
	MinInterval  time.Duration // Minimum time between create attempts by one user
	MaxPerHour   int           // Max create attempts per user per hour
	MaxIPPerHour int           // Max create attempts per IP per hour

	// Clock for testing (nil uses real time)
	Clock Clock
}

func DefaultConfig() *Config {
	return &Config{
		MinInterval:  2 * time.Second,
		MaxPerHour:   30,
		MaxIPPerHour: 120,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

type entry struct {
	count   int
	firstAt time.Time // First attempt in the hourly window
	lastAt  time.Time // Most recent attempt
}

type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.Mutex
	// Keyed by hash of user id or IP
	byUser map[string]*entry
	byIP   map[string]*entry

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		byUser:        make(map[string]*entry),
		byIP:          make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine and releases resources.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// AllowCreate checks a booking create attempt and, when allowed, records it.
// Rejected attempts are not counted.
func (l *Limiter) AllowCreate(userID int64, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()
	userKey := hashKey("create:user:", strconv.FormatInt(userID, 10))
	ipKey := hashKey("create:ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	if e := l.byUser[userKey]; e != nil {
		if elapsed := now.Sub(e.lastAt); elapsed < l.config.MinInterval {
			return LimitResult{RetryAfter: l.config.MinInterval - elapsed, Reason: "min_interval"}
		}
		if l.config.MaxPerHour > 0 && now.Sub(e.firstAt) < time.Hour && e.count >= l.config.MaxPerHour {
			return LimitResult{RetryAfter: time.Hour - now.Sub(e.firstAt), Reason: "hourly_limit"}
		}
	}
	if e := l.byIP[ipKey]; e != nil {
		if l.config.MaxIPPerHour > 0 && now.Sub(e.firstAt) < time.Hour && e.count >= l.config.MaxIPPerHour {
			return LimitResult{RetryAfter: time.Hour - now.Sub(e.firstAt), Reason: "ip_hourly_limit"}
		}
	}

	record(l.byUser, userKey, now)
	record(l.byIP, ipKey, now)
	return LimitResult{Allowed: true}
}

func record(entries map[string]*entry, key string, now time.Time) {
	e := entries[key]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		entries[key] = &entry{count: 1, firstAt: now, lastAt: now}
		return
	}
	e.count++
	e.lastAt = now
}

func hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(hash[:8])
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.byUser {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.byUser, k)
		}
	}
	for k, e := range l.byIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.byIP, k)
		}
	}
}

// LogExceeded logs a rejected attempt on the request logger.
func LogExceeded(logger *zerolog.Logger, userID int64, ip string, result LimitResult) {
	logger.Warn().
		Str("event", "rate_limit_exceeded").
		Int64("user_id", userID).
		Str("ip", ip).
		Str("reason", result.Reason).
		Dur("retry_after", result.RetryAfter).
		Msg("Booking create rate limit exceeded")
}
