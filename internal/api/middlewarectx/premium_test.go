package middlewarectx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockEntitlementChecker struct {
	mock.Mock
}

func (m *MockEntitlementChecker) Check(ctx context.Context, userUID string) (bool, error) {
	args := m.Called(ctx, userUID)
	return args.Bool(0), args.Error(1)
}

func newNoopLoggerPremium() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestPremiumMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		userUID        any
		setupMocks     func(*MockEntitlementChecker)
		expectedStatus int
		expectedBody   string
		handlerCalled  bool
	}{
		{
			name:    "премиум-пользователь проходит",
			userUID: "user123",
			setupMocks: func(g *MockEntitlementChecker) {
				g.On("Check", mock.Anything, "user123").Return(true, nil).Once()
			},
			expectedStatus: http.StatusOK,
			handlerCalled:  true,
		},
		{
			name:    "пользователь без премиума получает 403",
			userUID: "user123",
			setupMocks: func(g *MockEntitlementChecker) {
				g.On("Check", mock.Anything, "user123").Return(false, nil).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"status":"Error","error":"premium access required"}`,
		},
		{
			name:           "отсутствие идентификатора пользователя дает 401",
			userUID:        nil,
			setupMocks:     func(*MockEntitlementChecker) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"user identification missing"}`,
		},
		{
			name:    "сбой проверки закрывает доступ",
			userUID: "user123",
			setupMocks: func(g *MockEntitlementChecker) {
				g.On("Check", mock.Anything, "user123").Return(false, assert.AnError).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal service error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := new(MockEntitlementChecker)
			tt.setupMocks(gate)

			handlerCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			})

			mw := PremiumMiddleware(newNoopLoggerPremium(), gate)

			req := httptest.NewRequest(http.MethodGet, "/premium", nil)
			if tt.userUID != nil {
				req = req.WithContext(context.WithValue(req.Context(), UserUID, tt.userUID))
			}
			w := httptest.NewRecorder()

			mw(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.handlerCalled, handlerCalled)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			gate.AssertExpectations(t)
		})
	}
}
