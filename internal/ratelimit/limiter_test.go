package ratelimit

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2030, 5, 6, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllowCreate_MinInterval(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MinInterval: 2 * time.Second, MaxPerHour: 10, MaxIPPerHour: 100, Clock: clock})
	defer limiter.Close()

	require.True(t, limiter.AllowCreate(7, "203.0.113.5").Allowed)

	clock.Advance(500 * time.Millisecond)
	result := limiter.AllowCreate(7, "203.0.113.5")
	assert.False(t, result.Allowed)
	assert.Equal(t, "min_interval", result.Reason)
	assert.Equal(t, 1500*time.Millisecond, result.RetryAfter)

	// Another user on the same IP is unaffected.
	assert.True(t, limiter.AllowCreate(8, "203.0.113.5").Allowed)

	clock.Advance(2 * time.Second)
	assert.True(t, limiter.AllowCreate(7, "203.0.113.5").Allowed)
}

func TestAllowCreate_HourlyLimit(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MinInterval: time.Millisecond, MaxPerHour: 3, MaxIPPerHour: 100, Clock: clock})
	defer limiter.Close()

	for i := 0; i < 3; i++ {
		require.True(t, limiter.AllowCreate(7, "203.0.113.5").Allowed, "attempt %d", i+1)
		clock.Advance(time.Minute)
	}

	result := limiter.AllowCreate(7, "203.0.113.5")
	assert.False(t, result.Allowed)
	assert.Equal(t, "hourly_limit", result.Reason)
	assert.Equal(t, 57*time.Minute, result.RetryAfter)

	clock.Advance(58 * time.Minute)
	assert.True(t, limiter.AllowCreate(7, "203.0.113.5").Allowed)
}

func TestAllowCreate_IPLimit(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MinInterval: time.Millisecond, MaxPerHour: 100, MaxIPPerHour: 2, Clock: clock})
	defer limiter.Close()

	require.True(t, limiter.AllowCreate(1, "198.51.100.7").Allowed)
	require.True(t, limiter.AllowCreate(2, "198.51.100.7").Allowed)

	result := limiter.AllowCreate(3, "198.51.100.7")
	assert.False(t, result.Allowed)
	assert.Equal(t, "ip_hourly_limit", result.Reason)

	assert.True(t, limiter.AllowCreate(3, "198.51.100.8").Allowed)
}

func TestAllowCreate_RejectedAttemptsAreNotCounted(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MinInterval: time.Second, MaxPerHour: 2, MaxIPPerHour: 100, Clock: clock})
	defer limiter.Close()

	require.True(t, limiter.AllowCreate(7, "203.0.113.5").Allowed)
	for i := 0; i < 5; i++ {
		require.False(t, limiter.AllowCreate(7, "203.0.113.5").Allowed)
	}
	clock.Advance(time.Second)
	assert.True(t, limiter.AllowCreate(7, "203.0.113.5").Allowed)
}

func TestCleanupDropsIdleEntries(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MinInterval: time.Second, MaxPerHour: 2, MaxIPPerHour: 2, Clock: clock})
	defer limiter.Close()

	limiter.AllowCreate(7, "203.0.113.5")
	clock.Advance(2 * time.Hour)
	limiter.cleanup()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.byUser)
	assert.Empty(t, limiter.byIP)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		expected   string
	}{
		{
			name:       "trusted XFF rightmost public hop",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.50",
		},
		{
			name:       "trusted XFF all private",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "10.0.0.1",
		},
		{
			name:       "trusted X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.51",
		},
		{
			name:       "untrusted ignores XFF",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4"},
			remoteAddr: "192.168.1.100:54321",
			expected:   "192.168.1.100",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.168.1.100",
			expected:   "192.168.1.100",
		},
		{
			name:       "ipv4 mapped private hop skipped",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, ::ffff:192.168.1.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/booking", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, ClientIP(r, tt.trustProxy))
		})
	}
}
