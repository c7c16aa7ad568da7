package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apiContext "callsight/internal/api/context"
	"callsight/internal/platform/auth"

	"github.com/julienschmidt/httprouter"
)

func TestAllowExhaustsBucket(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		if !rl.Allow("key_a", 3) {
			t.Fatalf("Request %d should have been allowed", i+1)
		}
	}
	if rl.Allow("key_a", 3) {
		t.Error("Fourth request should have been rejected")
	}

	// Separate keys keep separate buckets
	if !rl.Allow("key_b", 3) {
		t.Error("Fresh key should start with a full bucket")
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	rl := NewRateLimiter()

	if !rl.Allow("key_refill", 60) {
		t.Fatal("First request should pass")
	}

	// Drain the bucket and rewind the refill clock instead of sleeping
	val, ok := rl.store.Load("key_refill")
	if !ok {
		t.Fatal("Bucket missing after Allow")
	}
	bucket := val.(*Bucket)
	bucket.mu.Lock()
	bucket.tokens = 0
	bucket.lastRefill = time.Now().Add(-2 * time.Second)
	bucket.mu.Unlock()

	// 60/min refills one token per second; two seconds earn two tokens
	if !rl.Allow("key_refill", 60) {
		t.Error("Expected refilled token to be granted")
	}
}

func rateLimitedRequest(t *testing.T, limiter func(http.HandlerFunc) http.HandlerFunc, ctx context.Context) int {
	t.Helper()

	handler := limiter(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook/x", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec.Code
}

func TestRateLimitKeysByWebhookID(t *testing.T) {
	SetLimits(2, 1000, 100)
	defer SetLimits(600, 1000, 100)

	limiter := RateLimit("ingest")

	paramsCtx := func(webhookID string) context.Context {
		params := httprouter.Params{{Key: "webhook_id", Value: webhookID}}
		return context.WithValue(context.Background(), apiContext.Params, params)
	}

	ctxA := paramsCtx("wh_noisy")
	for i := 0; i < 2; i++ {
		if code := rateLimitedRequest(t, limiter, ctxA); code != http.StatusOK {
			t.Fatalf("Request %d for wh_noisy returned %d", i+1, code)
		}
	}
	if code := rateLimitedRequest(t, limiter, ctxA); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 once wh_noisy exhausted its bucket, got %d", code)
	}

	// A different webhook is unaffected by the noisy one
	if code := rateLimitedRequest(t, limiter, paramsCtx("wh_quiet")); code != http.StatusOK {
		t.Errorf("Expected wh_quiet to pass, got %d", code)
	}
}

func TestRateLimitKeysByWorkspaceClaims(t *testing.T) {
	SetLimits(600, 1000, 1)
	defer SetLimits(600, 1000, 100)

	limiter := RateLimit("api_write")

	claimsCtx := func(workspaceID string) context.Context {
		claims := &auth.Claims{UserID: "usr_1", WorkspaceID: workspaceID}
		return context.WithValue(context.Background(), apiContext.Claims, claims)
	}

	if code := rateLimitedRequest(t, limiter, claimsCtx("ws_a")); code != http.StatusOK {
		t.Fatalf("First ws_a request returned %d", code)
	}
	if code := rateLimitedRequest(t, limiter, claimsCtx("ws_a")); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 for exhausted workspace, got %d", code)
	}
	if code := rateLimitedRequest(t, limiter, claimsCtx("ws_b")); code != http.StatusOK {
		t.Errorf("Expected ws_b to have its own bucket, got %d", code)
	}
}
