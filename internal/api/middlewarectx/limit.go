package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/ibizainsider/entitlement-service/internal/api/response"
)

// Общий лимит на все входящие запросы: 10 rps с всплеском до 20.
var limiter = rate.NewLimiter(10, 20)

// RateLimitMiddleware создает middleware, которое отклоняет запросы сверх лимита.
func RateLimitMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Info("rate limit exceeded",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path))
				w.WriteHeader(http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
