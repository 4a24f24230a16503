package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oms-labs/oms-backend/api/responses"
	"github.com/oms-labs/oms-backend/pkg/config"
	pkgerrors "github.com/oms-labs/oms-backend/pkg/errors"
	"github.com/oms-labs/oms-backend/pkg/logger"
)

// FixedWindowLimiter is the slice of the redis client the limiter needs.
type FixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RegisterRateLimit throttles account creation per client IP inside a fixed
// window. It fails open when the backing store is unreachable so a redis
// outage does not block signups.
func RegisterRateLimit(store FixedWindowLimiter, cfg config.RateLimitConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			scope := "register:ip:" + ip

			allowed, _, err := store.FixedWindowAllow(r.Context(), scope, int64(cfg.RegisterIPLimit), cfg.RegisterWindow)
			if err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "rate limit check failed, allowing request")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeRateLimit, "too many registration attempts, try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
