// Package validate реализует открытый HTTP-обработчик проверки промокода.
//
// Проверка не имеет побочных эффектов: счетчик использований не меняется.
// Форма вызывает этот обработчик до отправки регистрации, чтобы показать
// пользователю раннюю обратную связь.
package validate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/ibizainsider/entitlement-service/internal/api/response"
	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
	"github.com/ibizainsider/entitlement-service/internal/services/promo"
	"github.com/ibizainsider/entitlement-service/internal/storage/repository"
)

// Request — входные данные проверки промокода
type Request struct {
	Code string `json:"code" validate:"required"`
}

// Validator определяет проверку промокода без побочных эффектов.
type Validator interface {
	Validate(ctx context.Context, raw string) (string, error)
}

// Handler обрабатывает HTTP-запросы проверки промокода.
type Handler struct {
	log       *slog.Logger
	validator Validator
	validate  *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, promoValidator Validator) *Handler {
	return &Handler{
		log:       log,
		validator: promoValidator,
		validate:  validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Проверка промокода
// @Description Проверяет промокод без изменения счетчика использований
// @Tags Promo
// @Accept  json
// @Produce  json
// @Param request body Request true "Промокод"
// @Success 200 {object} response.OKResponse "Результат проверки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 500 {object} response.ErrorResponse "Сбой хранилища"
// @Router /promo/validate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.promo.validate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	canonical, err := h.validator.Validate(r.Context(), req.Code)
	if err != nil {
		msg, known := verdictMessage(err)
		if !known {
			log.Error("promo validation failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal service error"))
			return
		}
		log.Info("promo code rejected", slog.String("reason", msg))
		render.JSON(w, r, response.OKWithData(map[string]any{
			"valid": false,
			"error": msg,
		}))
		return
	}

	log.Info("promo code valid", slog.String("code", canonical))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"valid": true,
		"code":  canonical,
	}))
}

// verdictMessage переводит вердикт проверки в сообщение для пользователя.
// Сбой хранилища вердиктом не является.
func verdictMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, promo.ErrMalformedCode):
		return "promo code is malformed", true
	case errors.Is(err, repository.ErrPromoNotFound):
		return "invalid promo code", true
	case errors.Is(err, repository.ErrPromoInactive):
		return "promo code is no longer active", true
	case errors.Is(err, repository.ErrPromoExhausted):
		return "promo code has reached its usage limit", true
	default:
		return "", false
	}
}
