package security

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("a") {
		t.Error("third request within the window should be rejected")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("bucket should refill after the window")
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("idle")

	now = now.Add(3 * time.Second)
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["idle"]; ok {
		t.Error("idle visitor should have been removed")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr without port", nil, "10.0.0.1:5555", "10.0.0.1"},
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.1:5555", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "5.6.7.8"}, "10.0.0.1:5555", "5.6.7.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %v, want %v", got, tt.want)
			}
		})
	}
}
