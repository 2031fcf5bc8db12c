// Package news реализует премиум HTTP-обработчик сводки новостей по Ибице.
package news

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

// DigestService генерирует сводку новостей.
type DigestService interface {
	NewsDigest(ctx context.Context) (*digest.Digest, error)
}

// Handler обрабатывает HTTP-запросы сводки новостей.
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
// @Summary Сводка новостей по Ибице
// @Description Возвращает сегодняшнюю сводку новостей, премиум-раздел
// @Tags Digest
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} response.OKResponse "Сводка новостей"
// @Failure 403 {object} response.ErrorResponse "Нет премиум-доступа"
// @Failure 429 {object} response.ErrorResponse "Лимит шлюза исчерпан"
// @Failure 500 {object} response.ErrorResponse "Сбой генерации"
// @Router /digests/news [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.digest.news"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	result, err := h.service.NewsDigest(r.Context())
	if err != nil {
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
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"news":         result.Content,
		"generated_at": result.GeneratedAt,
	}))
}
