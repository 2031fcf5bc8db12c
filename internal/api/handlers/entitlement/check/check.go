// Package check реализует HTTP-обработчик проверки премиум-доступа
// текущего пользователя.
package check

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/ibizainsider/entitlement-service/internal/api/middlewarectx"
	"github.com/ibizainsider/entitlement-service/internal/api/response"
	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
	"github.com/ibizainsider/entitlement-service/internal/models"
)

// AccessGate возвращает право доступа пользователя.
type AccessGate interface {
	Entitlement(ctx context.Context, userUID string) (*models.Entitlement, error)
}

// Handler обрабатывает HTTP-запросы проверки доступа.
type Handler struct {
	log  *slog.Logger
	gate AccessGate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, gate AccessGate) *Handler {
	return &Handler{
		log:  log,
		gate: gate,
	}
}

// ServeHTTP godoc
// @Summary Текущее право доступа
// @Description Возвращает премиум-статус аутентифицированного пользователя
// @Tags Entitlement
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} response.OKResponse "Право доступа"
// @Failure 401 {object} response.ErrorResponse "Пользователь не аутентифицирован"
// @Failure 500 {object} response.ErrorResponse "Сбой хранилища"
// @Router /access [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.check"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	ent, err := h.gate.Entitlement(r.Context(), userUID)
	if err != nil {
		log.Error("failed to get entitlement", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	data := map[string]any{
		"has_premium_access": ent.HasPremiumAccess,
	}
	if ent.HasPremiumAccess {
		data["granted_via"] = ent.GrantedVia
		data["granted_at"] = ent.GrantedAt
	}

	render.JSON(w, r, response.OKWithData(data))
}
