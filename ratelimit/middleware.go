package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/harmonic-studioz/pouchfi-api/cache"
)

// Middleware enforces l on every request: one point per {clientIP}_{path}
// identity. Allowed requests continue with the rate-limit headers set; an
// exhausted bucket short-circuits with 429 and a structured error body.
// Store errors fail open -- a broken limiter must not take the site down.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := l.Consume(r.Context(), Identity(clientIP(r), r.URL.Path))
		if err != nil {
			l.log.Warn("ratelimit: consume failed, letting request through", cache.Fields{"err": err})
			next.ServeHTTP(w, r)
			return
		}
		SetHeaders(w.Header(), l.cfg, res)
		if !res.Allowed {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(ErrorBody(l.cfg))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetHeaders applies the rate-limit response header convention shared by
// every transport adapter.
func SetHeaders(h http.Header, cfg Config, res Result) {
	h.Set("Retry-After", strconv.FormatInt(int64(res.RetryAfter/time.Second), 10))
	h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Points))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
	h.Set("X-RateLimit-Reset", res.RetryAfter.Round(time.Second).String())
}

// RateLimitError is the error object inside a 429 body.
type RateLimitError struct {
	Status  int    `json:"status"`
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error RateLimitError `json:"error"`
}

// ErrorBody is the structured 429 payload for cfg's policy.
func ErrorBody(cfg Config) any {
	return errorEnvelope{Error: RateLimitError{
		Status:  http.StatusTooManyRequests,
		Type:    "rate_limit_error",
		Code:    cfg.Code,
		Message: "Too many requests",
	}}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
