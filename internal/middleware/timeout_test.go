package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestTimeoutMiddleware はリクエストコンテキストに期限が設定されることを検証する。
func TestTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	handler := NewTimeoutMiddleware(5 * time.Second)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			deadline, hasDeadline = r.Context().Deadline()
			w.WriteHeader(http.StatusOK)
		},
	))

	req := httptest.NewRequest(http.MethodGet, "/dives", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !hasDeadline {
		t.Fatal("request context should carry a deadline")
	}
	if remaining := time.Until(deadline); remaining > 5*time.Second || remaining <= 0 {
		t.Errorf("unexpected deadline: %v remaining", remaining)
	}
}
