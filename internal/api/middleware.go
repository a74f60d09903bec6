// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ManuGH/ytsum/internal/apperr"
	"github.com/ManuGH/ytsum/internal/log"
	"github.com/ManuGH/ytsum/internal/ratelimit"
)

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ytsum_http_requests_total",
	Help: "HTTP requests by method and status code.",
}, []string{"method", "status"})

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs every request and carries the chi request id into the
// context so downstream components tag their entries with it.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		httpRequests.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str(log.FieldRequestID, reqID).
			Str(log.FieldClientID, ratelimit.ClientIdentity(r)).
			Msg("request")
	})
}

// checkRateLimit runs the per-class sliding-window quota and writes the
// X-RateLimit-* headers. It answers the 429 itself and reports whether the
// handler may proceed.
func (s *Server) checkRateLimit(w http.ResponseWriter, r *http.Request, class string) bool {
	status := s.limiter.Check(r.Context(), class, ratelimit.ClientIdentity(r))

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(status.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(status.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(status.ResetAt.Unix(), 10))

	if status.Allowed {
		return true
	}

	retryAfter := int(time.Until(status.ResetAt).Seconds()) + 1
	if retryAfter < 1 {
		retryAfter = 1
	}
	h.Set("Retry-After", strconv.Itoa(retryAfter))
	writeError(w, http.StatusTooManyRequests, apperr.CodeRateLimitExceeded, "request quota exceeded, slow down")
	return false
}
