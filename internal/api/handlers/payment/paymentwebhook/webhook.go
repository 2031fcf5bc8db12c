// Package paymentwebhook реализует прием серверных уведомлений платежного
// провайдера. Подпись тела сверяется с HMAC-SHA256 от общего секрета.
package paymentwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
	"github.com/ibizainsider/entitlement-service/internal/models"
	"github.com/ibizainsider/entitlement-service/internal/services/access"
)

// AccessGate записывает платеж и выдает премиум-доступ.
type AccessGate interface {
	OnPaymentConfirmed(ctx context.Context, identity models.Identity,
		paymentID string, amount float64, currency, method string) (bool, error)
}

// Handler обрабатывает webhook-уведомления платежного провайдера.
type Handler struct {
	log           *slog.Logger
	gate          AccessGate
	webhookSecret string // Секрет для проверки подписи
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, gate AccessGate, secret string) *Handler {
	return &Handler{
		log:           log,
		gate:          gate,
		webhookSecret: secret,
	}
}

// Payload — тело уведомления платежного провайдера.
type Payload struct {
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`     // payment ID
		Status string `json:"status"` // статус платежа
		Amount struct {
			Value    string `json:"value"`    // сумма в строке, например "29.99"
			Currency string `json:"currency"` // валюта
		} `json:"amount"`
		PaymentMethod struct {
			Type string `json:"type"` // способ оплаты, например "paypal"
		} `json:"payment_method"`
		Metadata map[string]string `json:"metadata"` // user_uid, email
	} `json:"object"`
}

// Проверка подписи webhook (X-Api-Signature)
func (h *Handler) verifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedSig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expectedSig), []byte(signature))
}

// ServeHTTP godoc
// @Summary Webhook платежного провайдера
// @Description Принимает серверные уведомления о платежах с HMAC-подписью
// @Tags Payment
// @Accept  json
// @Success 200 "Уведомление обработано"
// @Failure 400 "Некорректное тело"
// @Failure 401 "Неверная подпись"
// @Failure 500 "Сбой записи, провайдер повторит доставку"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("X-Api-Signature")
	if signature == "" || !h.verifySignature(h.webhookSecret, body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	const paymentSucceeded = "payment.succeeded"

	if !strings.EqualFold(payload.Event, paymentSucceeded) {
		log.Info("ignored webhook event", slog.String("event", payload.Event))
		w.WriteHeader(http.StatusOK)
		return
	}

	userUID := payload.Object.Metadata["user_uid"]
	if userUID == "" {
		log.Error("webhook payload missing user_uid metadata",
			slog.String("payment_id", payload.Object.ID))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	amount, err := strconv.ParseFloat(payload.Object.Amount.Value, 64)
	if err != nil {
		log.Error("failed to parse payment amount", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	identity := models.Identity{
		UID:   userUID,
		Email: payload.Object.Metadata["email"],
	}
	_, err = h.gate.OnPaymentConfirmed(r.Context(), identity,
		payload.Object.ID, amount, payload.Object.Amount.Currency,
		payload.Object.PaymentMethod.Type)
	if err != nil {
		if errors.Is(err, access.ErrPaymentOwnedByAnother) {
			// Повтор доставки не поможет, отвечаем 200, чтобы провайдер
			// не ретраил заведомо конфликтное уведомление.
			log.Error("webhook payment id belongs to another user",
				slog.String("payment_id", payload.Object.ID))
			w.WriteHeader(http.StatusOK)
			return
		}
		log.Error("failed to process webhook event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	log.Info("webhook processed successfully",
		slog.String("event", payload.Event),
		slog.String("payment_id", payload.Object.ID))
	w.WriteHeader(http.StatusOK)
}
