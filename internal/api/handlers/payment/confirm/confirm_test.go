package confirm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ibizainsider/entitlement-service/internal/api/middlewarectx"
	"github.com/ibizainsider/entitlement-service/internal/models"
	"github.com/ibizainsider/entitlement-service/internal/services/access"
)

// MockAccessGate реализует интерфейс confirm.AccessGate
type MockAccessGate struct {
	mock.Mock
}

func (m *MockAccessGate) OnPaymentConfirmed(ctx context.Context, identity models.Identity,
	paymentID string, amount float64, currency, method string) (bool, error) {
	args := m.Called(ctx, identity, paymentID, amount, currency, method)
	return args.Bool(0), args.Error(1)
}

func TestConfirmHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validBody := `{"payment_id":"PAYPAL-8XY12345AB","amount":29.99,"currency":"EUR","method":"paypal"}`

	tests := []struct {
		name           string
		requestBody    string
		userUID        string
		setupMock      func(*MockAccessGate)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешное подтверждение платежа",
			requestBody: validBody,
			userUID:     "user123",
			setupMock: func(m *MockAccessGate) {
				m.On("OnPaymentConfirmed", mock.Anything, models.Identity{UID: "user123"},
					"PAYPAL-8XY12345AB", 29.99, "EUR", "paypal").Return(false, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"payment_id":"PAYPAL-8XY12345AB","premium_granted":true,"already_processed":false}}`,
		},
		{
			name:        "повторная отправка того же платежа идемпотентна",
			requestBody: validBody,
			userUID:     "user123",
			setupMock: func(m *MockAccessGate) {
				m.On("OnPaymentConfirmed", mock.Anything, models.Identity{UID: "user123"},
					"PAYPAL-8XY12345AB", 29.99, "EUR", "paypal").Return(true, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"payment_id":"PAYPAL-8XY12345AB","premium_granted":true,"already_processed":true}}`,
		},
		{
			name:        "payment_id принадлежит другому пользователю",
			requestBody: validBody,
			userUID:     "user123",
			setupMock: func(m *MockAccessGate) {
				m.On("OnPaymentConfirmed", mock.Anything, models.Identity{UID: "user123"},
					"PAYPAL-8XY12345AB", 29.99, "EUR", "paypal").
					Return(false, access.ErrPaymentOwnedByAnother).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"status":"Error","error":"payment already registered to another account"}`,
		},
		{
			name:        "сбой записи возвращает 500 для повтора",
			requestBody: validBody,
			userUID:     "user123",
			setupMock: func(m *MockAccessGate) {
				m.On("OnPaymentConfirmed", mock.Anything, models.Identity{UID: "user123"},
					"PAYPAL-8XY12345AB", 29.99, "EUR", "paypal").
					Return(false, errors.New("connection reset")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"failed to record payment, please retry"}`,
		},
		{
			name:           "отсутствует идентификатор пользователя",
			requestBody:    validBody,
			userUID:        "",
			setupMock:      func(*MockAccessGate) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"user identification missing"}`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    `not a json`,
			userUID:        "user123",
			setupMock:      func(*MockAccessGate) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "пустой payment_id",
			requestBody:    `{"payment_id":"","amount":29.99,"currency":"EUR","method":"paypal"}`,
			userUID:        "user123",
			setupMock:      func(*MockAccessGate) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field PaymentID is a required field"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := new(MockAccessGate)
			tt.setupMock(gate)

			handler := New(logger, gate)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/confirm", bytes.NewReader([]byte(tt.requestBody)))
			req.Header.Set("Content-Type", "application/json")

			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "req-id")
			if tt.userUID != "" {
				ctx = context.WithValue(ctx, middlewarectx.UserUID, tt.userUID)
			}
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			gate.AssertExpectations(t)
		})
	}
}
