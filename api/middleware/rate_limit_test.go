package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oms-labs/oms-backend/pkg/config"
)

type stubLimiter struct {
	allowed bool
	err     error
	scopes  []string
}

func (s *stubLimiter) FixedWindowAllow(_ context.Context, scope string, _ int64, _ time.Duration) (bool, int64, error) {
	s.scopes = append(s.scopes, scope)
	return s.allowed, 1, s.err
}

func testRateLimitConfig() config.RateLimitConfig {
	return config.RateLimitConfig{RegisterWindow: time.Minute, RegisterIPLimit: 5}
}

func TestRegisterRateLimitAllowsUnderLimit(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	handler := RegisterRateLimit(limiter, testRateLimitConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/register", nil)
	req.RemoteAddr = "10.0.0.1:4242"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if len(limiter.scopes) != 1 || limiter.scopes[0] != "register:ip:10.0.0.1" {
		t.Fatalf("unexpected scopes %v", limiter.scopes)
	}
}

func TestRegisterRateLimitBlocksOverLimit(t *testing.T) {
	limiter := &stubLimiter{allowed: false}
	handler := RegisterRateLimit(limiter, testRateLimitConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/register", nil)
	req.RemoteAddr = "10.0.0.1:4242"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestRegisterRateLimitFailsOpen(t *testing.T) {
	limiter := &stubLimiter{allowed: false, err: errors.New("redis down")}
	handler := RegisterRateLimit(limiter, testRateLimitConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/register", nil)
	req.RemoteAddr = "10.0.0.1:4242"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4242"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := clientIP(req); ip != "203.0.113.7" {
		t.Fatalf("expected forwarded ip got %s", ip)
	}

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "198.51.100.2")
	if ip := clientIP(req); ip != "198.51.100.2" {
		t.Fatalf("expected real ip got %s", ip)
	}

	req.Header.Del("X-Real-IP")
	if ip := clientIP(req); ip != "10.0.0.1" {
		t.Fatalf("expected remote addr host got %s", ip)
	}
}
