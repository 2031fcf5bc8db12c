// Package health реализует пробу готовности сервиса.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/streadway/amqp"

	"github.com/ibizainsider/entitlement-service/internal/api/response"
	"github.com/ibizainsider/entitlement-service/internal/cache"
	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
	"github.com/ibizainsider/entitlement-service/internal/storage/repository"
)

type Handler struct {
	log     *slog.Logger
	storage *repository.Storage
	rabbit  *amqp.Connection
	cache   *cache.Cache
}

func New(log *slog.Logger, storage *repository.Storage, rabbit *amqp.Connection, cache *cache.Cache) *Handler {
	return &Handler{
		log:     log,
		storage: storage,
		rabbit:  rabbit,
		cache:   cache,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	log := h.log.With(slog.String("op", op))

	checks := map[string]string{
		"postgres": "ok",
		"rabbitmq": "ok",
		"redis":    "ok",
	}
	healthy := true

	if err := repository.CheckDatabaseReady(h.storage); err != nil {
		log.Error("postgres is not ready", sl.Err(err))
		checks["postgres"] = "unavailable"
		healthy = false
	}
	if h.rabbit.IsClosed() {
		log.Error("rabbitmq connection is closed")
		checks["rabbitmq"] = "unavailable"
		healthy = false
	}
	if err := h.cache.Db.Ping(r.Context()).Err(); err != nil {
		log.Error("redis is not ready", sl.Err(err))
		checks["redis"] = "unavailable"
		healthy = false
	}

	status := "ok"
	if !healthy {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": status,
		"checks": checks,
	}))
}
