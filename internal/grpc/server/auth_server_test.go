package server

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authpb "github.com/ibizainsider/entitlement-service/internal/grpc/gen"
	"github.com/ibizainsider/entitlement-service/internal/models"
)

// MockAuthService - мок для AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, username, password string) (string, error) {
	args := m.Called(ctx, email, username, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (string, string, string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.String(1), args.String(2), args.Error(3)
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*models.User, string, bool, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Bool(2), args.Error(3)
	}
	return args.Get(0).(*models.User), args.String(1), args.Bool(2), args.Error(3)
}

// Убеждаемся, что MockAuthService реализует интерфейс AuthServiceInterface
var _ AuthServiceInterface = (*MockAuthService)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestNewAuthServer(t *testing.T) {
	mockService := new(MockAuthService)
	logger := testLogger()

	server := NewAuthServer(mockService, logger)

	assert.NotNil(t, server)
	assert.Equal(t, mockService, server.authService)
	assert.Equal(t, logger, server.log)
}

func TestAuthServer_Register(t *testing.T) {
	tests := []struct {
		name          string
		request       *authpb.RegisterRequest
		mockSetup     func(*MockAuthService)
		expectedError bool
		expectedCode  codes.Code
		expectedUID   string
	}{
		{
			name: "успешная регистрация",
			request: &authpb.RegisterRequest{
				Email:    "test@example.com",
				Username: "testuser",
				Password: "password123",
			},
			mockSetup: func(m *MockAuthService) {
				m.On("Register", mock.Anything, "test@example.com", "testuser", "password123").
					Return("user-uuid-123", nil).Once()
			},
			expectedUID: "user-uuid-123",
		},
		{
			name: "ошибка регистрации",
			request: &authpb.RegisterRequest{
				Email:    "test@example.com",
				Username: "testuser",
				Password: "password123",
			},
			mockSetup: func(m *MockAuthService) {
				m.On("Register", mock.Anything, "test@example.com", "testuser", "password123").
					Return("", assert.AnError).Once()
			},
			expectedError: true,
			expectedCode:  codes.Internal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAuthService)
			tt.mockSetup(mockService)

			server := NewAuthServer(mockService, testLogger())
			resp, err := server.Register(context.Background(), tt.request)

			if tt.expectedError {
				require.Error(t, err)
				st, ok := status.FromError(err)
				require.True(t, ok)
				assert.Equal(t, tt.expectedCode, st.Code())
			} else {
				require.NoError(t, err)
				assert.True(t, resp.Success)
				assert.Equal(t, tt.expectedUID, resp.Useruid)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestAuthServer_Login(t *testing.T) {
	tests := []struct {
		name          string
		request       *authpb.LoginRequest
		mockSetup     func(*MockAuthService)
		expectedError bool
		expectedCode  codes.Code
		expectedToken string
	}{
		{
			name: "успешный вход",
			request: &authpb.LoginRequest{
				Username: "testuser",
				Password: "password123",
			},
			mockSetup: func(m *MockAuthService) {
				m.On("Login", mock.Anything, "testuser", "password123").
					Return("jwt-token", "user", "user-uuid-123", nil).Once()
			},
			expectedToken: "jwt-token",
		},
		{
			name: "неверные учетные данные",
			request: &authpb.LoginRequest{
				Username: "testuser",
				Password: "wrongpassword",
			},
			mockSetup: func(m *MockAuthService) {
				m.On("Login", mock.Anything, "testuser", "wrongpassword").
					Return("", "", "", assert.AnError).Once()
			},
			expectedError: true,
			expectedCode:  codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAuthService)
			tt.mockSetup(mockService)

			server := NewAuthServer(mockService, testLogger())
			resp, err := server.Login(context.Background(), tt.request)

			if tt.expectedError {
				require.Error(t, err)
				st, ok := status.FromError(err)
				require.True(t, ok)
				assert.Equal(t, tt.expectedCode, st.Code())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedToken, resp.Token)
				assert.Equal(t, "user", resp.Role)
				assert.Equal(t, "user-uuid-123", resp.Useruid)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestAuthServer_ValidateToken(t *testing.T) {
	tests := []struct {
		name          string
		request       *authpb.ValidateTokenRequest
		mockSetup     func(*MockAuthService)
		expectedError bool
		expectedCode  codes.Code
	}{
		{
			name:    "валидный токен",
			request: &authpb.ValidateTokenRequest{Token: "valid-token"},
			mockSetup: func(m *MockAuthService) {
				m.On("ValidateToken", mock.Anything, "valid-token").
					Return(&models.User{Username: "testuser", Role: "user", UID: "user-uuid-123"},
						"user", true, nil).Once()
			},
		},
		{
			name:    "невалидный токен",
			request: &authpb.ValidateTokenRequest{Token: "invalid-token"},
			mockSetup: func(m *MockAuthService) {
				m.On("ValidateToken", mock.Anything, "invalid-token").
					Return(nil, "", false, assert.AnError).Once()
			},
			expectedError: true,
			expectedCode:  codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAuthService)
			tt.mockSetup(mockService)

			server := NewAuthServer(mockService, testLogger())
			resp, err := server.ValidateToken(context.Background(), tt.request)

			if tt.expectedError {
				require.Error(t, err)
				st, ok := status.FromError(err)
				require.True(t, ok)
				assert.Equal(t, tt.expectedCode, st.Code())
			} else {
				require.NoError(t, err)
				assert.True(t, resp.Valid)
				assert.Equal(t, "testuser", resp.Username)
				assert.Equal(t, "user-uuid-123", resp.Useruid)
			}

			mockService.AssertExpectations(t)
		})
	}
}
