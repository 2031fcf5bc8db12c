// Package weather реализует премиум HTTP-обработчик сводки погоды по Ибице.
package weather

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/ibizainsider/entitlement-service/internal/api/response"
	"github.com/ibizainsider/entitlement-service/internal/digestprovider"
	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
	"github.com/ibizainsider/entitlement-service/internal/services/digest"
)

// DigestService генерирует сводку погоды.
type DigestService interface {
	WeatherDigest(ctx context.Context) (*digest.Digest, error)
}

// Handler обрабатывает HTTP-запросы сводки погоды.
type Handler struct {
	log     *slog.Logger
	service DigestService
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service DigestService) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сводка погоды по Ибице
// @Description Возвращает сегодняшнюю сводку погоды, премиум-раздел
// @Tags Digest
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} response.OKResponse "Сводка погоды"
// @Failure 403 {object} response.ErrorResponse "Нет премиум-доступа"
// @Failure 429 {object} response.ErrorResponse "Лимит шлюза исчерпан"
// @Failure 500 {object} response.ErrorResponse "Сбой генерации"
// @Router /digests/weather [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.digest.weather"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	result, err := h.service.WeatherDigest(r.Context())
	if err != nil {
		writeDigestError(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"weather":      result.Content,
		"generated_at": result.GeneratedAt,
	}))
}

// writeDigestError переводит ошибки шлюза в HTTP-статусы. Используется
// обоими обработчиками сводок.
func writeDigestError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, digestprovider.ErrRateLimited):
		log.Info("digest gateway rate limited")
		w.WriteHeader(http.StatusTooManyRequests)
		render.JSON(w, r, response.Error("rate limits exceeded, please try again later"))
	case errors.Is(err, digestprovider.ErrCreditsExhausted):
		log.Error("digest gateway credits exhausted")
		w.WriteHeader(http.StatusPaymentRequired)
		render.JSON(w, r, response.Error("digest service temporarily unavailable"))
	default:
		log.Error("failed to build digest", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
	}
}
