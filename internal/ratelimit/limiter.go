// SPDX-License-Identifier: MIT

// Package ratelimit implements a sliding-window quota per client identity and
// method class, persisted in the KV store so limits hold across instances.
package ratelimit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ytsum/internal/kv"
)

var rateLimitExceeded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ytsum",
		Name:      "ratelimit_exceeded_total",
		Help:      "Total rate limit rejections",
	},
	[]string{"class"},
)

// Method classes. POST (job creation) and GET (polling) carry separate quotas.
const (
	ClassPost = "post"
	ClassGet  = "get"
)

// Status is the outcome of a limit check.
type Status struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled bool
	PostRPM int
	GetRPM  int
	Window  time.Duration // defaults to one minute
}

// Limiter checks sliding-window quotas against the KV store.
type Limiter struct {
	store  kv.Store
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a limiter. A nil store disables limiting entirely.
func New(store kv.Store, cfg Config, logger zerolog.Logger) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{store: store, cfg: cfg, logger: logger, now: time.Now}
}

func (l *Limiter) limitFor(class string) int {
	if class == ClassPost {
		return l.cfg.PostRPM
	}
	return l.cfg.GetRPM
}

// Check records one request for (class, identity) and reports whether it is
// within quota. When the feature is disabled or no store is configured every
// check is allowed with the full limit remaining.
func (l *Limiter) Check(ctx context.Context, class, identity string) Status {
	limit := l.limitFor(class)
	now := l.now()

	if !l.cfg.Enabled || l.store == nil || limit <= 0 {
		return Status{Allowed: true, Limit: limit, Remaining: limit, ResetAt: now.Add(l.cfg.Window)}
	}

	key := kv.RateLimitKey(class, identity)
	windowStart := now.Add(-l.cfg.Window)

	var stamps []int64
	if data, found, err := l.store.Get(ctx, key); err != nil {
		// Degrade open: a broken store must not take the API down.
		l.logger.Warn().Err(err).Str("key", key).Msg("rate limit read failed, allowing")
		return Status{Allowed: true, Limit: limit, Remaining: limit, ResetAt: now.Add(l.cfg.Window)}
	} else if found {
		if err := json.Unmarshal(data, &stamps); err != nil {
			stamps = nil
		}
	}

	// Slide the window: drop entries older than one window.
	kept := stamps[:0]
	for _, ts := range stamps {
		if time.UnixMilli(ts).After(windowStart) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		oldest := time.UnixMilli(kept[0])
		rateLimitExceeded.WithLabelValues(class).Inc()
		return Status{
			Allowed:   false,
			Limit:     limit,
			Remaining: 0,
			ResetAt:   oldest.Add(l.cfg.Window),
		}
	}

	kept = append(kept, now.UnixMilli())
	if data, err := json.Marshal(kept); err == nil {
		if err := l.store.Put(ctx, key, data, l.cfg.Window); err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("rate limit write failed")
		}
	}

	return Status{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(kept),
		ResetAt:   time.UnixMilli(kept[0]).Add(l.cfg.Window),
	}
}

// ClientIdentity derives the rate limit identity from proxy headers, falling
// back to the connection address and finally "unknown".
func ClientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2".
		// Take the first one (original client).
		first := xff
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			first = xff[:idx]
		}
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if cf := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); cf != "" {
		return cf
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
