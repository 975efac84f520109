package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestRateLimiter(generalBurst, deletionBurst int) *RateLimiter {
	return NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中に補充されない程度に遅く
		GeneralBurst:    generalBurst,
		DeletionRate:    rate.Limit(0.001),
		DeletionBurst:   deletionBurst,
		CleanupInterval: time.Hour,
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestGeneralMiddleware_BurstExhaustion はバースト超過で429が返ることを検証する。
func TestGeneralMiddleware_BurstExhaustion(t *testing.T) {
	rl := newTestRateLimiter(2, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/dives", nil)
		req.RemoteAddr = "198.51.100.1:40000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/dives", nil)
	req.RemoteAddr = "198.51.100.1:40000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

// TestRateLimiter_PerClientBuckets はクライアントごとに独立した
// バケットを持つことを検証する。
func TestRateLimiter_PerClientBuckets(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/dives", nil)
	first.RemoteAddr = "198.51.100.1:40000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first client: status = %d, want 200", rec.Code)
	}

	// 別クライアントは枯渇の影響を受けない
	second := httptest.NewRequest(http.MethodGet, "/dives", nil)
	second.RemoteAddr = "198.51.100.2:40000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("second client: status = %d, want 200", rec.Code)
	}

	if count := rl.GeneralLimiterCount(); count != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", count)
	}
}

// TestRateLimiter_IndependentClasses はAPI全般と削除の制限が
// 互いに影響しないことを検証する。
func TestRateLimiter_IndependentClasses(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	deletion := rl.DeletionMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/dives", nil)
	req.RemoteAddr = "198.51.100.1:40000"
	rec := httptest.NewRecorder()
	general.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("general: status = %d, want 200", rec.Code)
	}

	// API全般のバケットが空でも削除のバケットは使える
	req = httptest.NewRequest(http.MethodDelete, "/users/1", nil)
	req.RemoteAddr = "198.51.100.1:40000"
	rec = httptest.NewRecorder()
	deletion.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("deletion: status = %d, want 200", rec.Code)
	}
}

// TestClientKey はX-Forwarded-ForとRemoteAddrの解釈を検証する。
func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{name: "RemoteAddrのホスト部", remoteAddr: "203.0.113.9:51234", want: "203.0.113.9"},
		{name: "X-Forwarded-For単一", remoteAddr: "10.0.0.1:80", forwarded: "203.0.113.9", want: "203.0.113.9"},
		{name: "X-Forwarded-For複数は先頭", remoteAddr: "10.0.0.1:80", forwarded: "203.0.113.9, 10.0.0.2", want: "203.0.113.9"},
		{name: "ポートなしRemoteAddr", remoteAddr: "203.0.113.9", want: "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientKey(req); got != tt.want {
				t.Errorf("clientKey = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRateLimiter_Cleanup は期限切れエントリの削除を検証する。
func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    1,
		DeletionRate:    rate.Limit(1),
		DeletionBurst:   1,
		CleanupInterval: time.Hour,
	})
	defer rl.Stop()

	rl.getOrCreateGeneralLimiter("203.0.113.9")
	rl.getOrCreateDeletionLimiter("203.0.113.9")

	// 最終アクセスをTTLより過去に倒してクリーンアップ対象にする
	rl.generalMu.Lock()
	rl.generalLimiters["203.0.113.9"].lastAccess = time.Now().Add(-3 * time.Hour)
	rl.generalMu.Unlock()

	rl.cleanup()

	if count := rl.GeneralLimiterCount(); count != 0 {
		t.Errorf("GeneralLimiterCount = %d, want 0 after cleanup", count)
	}
	if count := rl.DeletionLimiterCount(); count != 1 {
		t.Errorf("DeletionLimiterCount = %d, want 1 (still fresh)", count)
	}
}
