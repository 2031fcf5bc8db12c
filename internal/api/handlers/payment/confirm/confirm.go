// Package confirm реализует HTTP-обработчик подтверждения платежа,
// который вызывает платежный виджет после успешной оплаты.
package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/ibizainsider/entitlement-service/internal/api/middlewarectx"
	"github.com/ibizainsider/entitlement-service/internal/api/response"
	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
	"github.com/ibizainsider/entitlement-service/internal/models"
	"github.com/ibizainsider/entitlement-service/internal/services/access"
)

// Request — входные данные подтверждения платежа
type Request struct {
	PaymentID string  `json:"payment_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Currency  string  `json:"currency" validate:"required,len=3"`
	Method    string  `json:"method" validate:"required"`
}

// AccessGate записывает платеж и выдает премиум-доступ.
type AccessGate interface {
	OnPaymentConfirmed(ctx context.Context, identity models.Identity,
		paymentID string, amount float64, currency, method string) (bool, error)
}

// Handler обрабатывает HTTP-запросы подтверждения платежа.
type Handler struct {
	log      *slog.Logger
	gate     AccessGate
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, gate AccessGate) *Handler {
	return &Handler{
		log:      log,
		gate:     gate,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Подтверждение платежа
// @Description Записывает завершенный платеж и выдает премиум-доступ
// @Tags Payment
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные платежа"
// @Success 200 {object} response.OKResponse "Платеж обработан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не аутентифицирован"
// @Failure 409 {object} response.ErrorResponse "Платеж принадлежит другому пользователю"
// @Failure 500 {object} response.ErrorResponse "Сбой записи, повторите запрос"
// @Router /payments/confirm [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.confirm"

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

	identity := models.Identity{UID: userUID}
	alreadyProcessed, err := h.gate.OnPaymentConfirmed(r.Context(), identity,
		req.PaymentID, req.Amount, req.Currency, req.Method)
	if err != nil {
		if errors.Is(err, access.ErrPaymentOwnedByAnother) {
			log.Error("payment id belongs to another user",
				slog.String("payment_id", req.PaymentID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("payment already registered to another account"))
			return
		}
		log.Error("failed to process payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to record payment, please retry"))
		return
	}

	log.Info("payment confirmed",
		slog.String("payment_id", req.PaymentID),
		slog.Bool("already_processed", alreadyProcessed))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment_id":        req.PaymentID,
		"premium_granted":   true,
		"already_processed": alreadyProcessed,
	}))
}
