package echomw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harmonic-studioz/pouchfi-api/ratelimit"
)

func TestMiddleware(t *testing.T) {
	l := ratelimit.New(ratelimit.Config{Points: 1, Duration: time.Minute, Code: "secure_limit"}, ratelimit.Options{})

	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, Middleware(l))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1000"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := do()
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Fatalf("X-RateLimit-Limit = %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q", got)
	}

	rec = do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over-budget status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got == "" {
		t.Fatal("Retry-After not set on the 429")
	}
}
