// Package entitlement предоставляет маршруты и сборку основного HTTP-приложения.
package entitlement

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ibizainsider/entitlement-service/internal/api/handlers/auth/login"
	"github.com/ibizainsider/entitlement-service/internal/api/handlers/auth/register"
	"github.com/ibizainsider/entitlement-service/internal/api/handlers/digest/news"
	"github.com/ibizainsider/entitlement-service/internal/api/handlers/digest/weather"
	"github.com/ibizainsider/entitlement-service/internal/api/handlers/entitlement/check"
	"github.com/ibizainsider/entitlement-service/internal/api/handlers/health"
	"github.com/ibizainsider/entitlement-service/internal/api/handlers/payment/confirm"
	"github.com/ibizainsider/entitlement-service/internal/api/handlers/payment/paymentwebhook"
	"github.com/ibizainsider/entitlement-service/internal/api/handlers/promo/validate"
	"github.com/ibizainsider/entitlement-service/internal/api/middlewarectx"
	"github.com/ibizainsider/entitlement-service/internal/grpc/client"
	"github.com/ibizainsider/entitlement-service/internal/services/access"
	digestservice "github.com/ibizainsider/entitlement-service/internal/services/digest"
	promoservice "github.com/ibizainsider/entitlement-service/internal/services/promo"

	"log/slog"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authClient *client.AuthClient, gate *access.Gate, promoValidator *promoservice.Validator, digestService *digestservice.Service, healthHandler *health.Handler, webhookSecret string) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authClient, gate).ServeHTTP)
		r.Post("/login", login.New(logger, authClient).ServeHTTP)
		r.Post("/promo/validate", validate.New(logger, promoValidator).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(logger, authClient))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/access", check.New(logger, gate).ServeHTTP)
			r.Post("/payments/confirm", confirm.New(logger, gate).ServeHTTP)

			// Контент только для премиум-пользователей
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.PremiumMiddleware(logger, gate))
				r.Get("/digests/weather", weather.New(logger, digestService).ServeHTTP)
				r.Get("/digests/news", news.New(logger, digestService).ServeHTTP)
			})
		})

		// Webhook endpoint (без аутентификации, проверяется подписью)
		r.Post("/payments/webhook", paymentwebhook.New(logger, gate, webhookSecret).ServeHTTP)
	})

	r.Get("/health", healthHandler.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
