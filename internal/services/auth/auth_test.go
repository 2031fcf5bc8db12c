package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	customjwt "github.com/ibizainsider/entitlement-service/internal/lib/jwt"
	"github.com/ibizainsider/entitlement-service/internal/lib/password"
	"github.com/ibizainsider/entitlement-service/internal/models"
	"github.com/ibizainsider/entitlement-service/internal/services/auth"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *UserRepoMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// Мок для jwt.Maker
type JwtMakerMock struct {
	mock.Mock
}

func (m *JwtMakerMock) GenerateToken(username, role, userUID string) (string, error) {
	args := m.Called(username, role, userUID)
	return args.String(0), args.Error(1)
}

func (m *JwtMakerMock) ParseToken(token string) (*customjwt.CustomClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.CustomClaims), args.Error(1)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		username    string
		password    string
		setupMocks  func(r *UserRepoMock)
		wantUserUID string
		wantErr     bool
		errMsg      string
	}{
		{
			name:     "успешная регистрация",
			email:    "test@example.com",
			username: "testuser",
			password: "password123",
			setupMocks: func(r *UserRepoMock) {
				r.On("RegisterUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
					return user.Email == "test@example.com" &&
						user.Username == "testuser" &&
						user.PasswordHash != "" &&
						user.Role == "user"
				})).Return("some-uuid-string", nil).Once()
			},
			wantUserUID: "some-uuid-string",
			wantErr:     false,
		},
		{
			name:     "ошибка репозитория",
			email:    "test@example.com",
			username: "testuser",
			password: "password123",
			setupMocks: func(r *UserRepoMock) {
				r.On("RegisterUser", mock.Anything, mock.Anything).Return("", errors.New("db error")).Once()
			},
			wantUserUID: "",
			wantErr:     true,
			errMsg:      "db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := auth.NewAuthService(repo, jwtMock)

			tt.setupMocks(repo)

			got, err := svc.Register(context.Background(), tt.email, tt.username, tt.password)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantUserUID, got)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	rawPassword := "correctpassword"

	hashedPassword, err := password.GetHash(rawPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	testUser := &models.User{
		UID:          "user-uid-1",
		Email:        "test@example.com",
		Username:     "testuser",
		PasswordHash: hashedPassword,
		Role:         "user",
	}

	tests := []struct {
		name       string
		username   string
		password   string
		setupMocks func(r *UserRepoMock, j *JwtMakerMock)
		wantToken  string
		wantRole   string
		wantUID    string
		wantErr    bool
		errMsg     string
	}{
		{
			name:     "успешный вход",
			username: "testuser",
			password: rawPassword,
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").Return(testUser, nil).Once()
				j.On("GenerateToken", "testuser", "user", "user-uid-1").Return("jwt-token-123", nil).Once()
			},
			wantToken: "jwt-token-123",
			wantRole:  "user",
			wantUID:   "user-uid-1",
			wantErr:   false,
		},
		{
			name:     "пользователь не найден",
			username: "nonexistent",
			password: "password",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByUsername", mock.Anything, "nonexistent").Return(nil, errors.New("user not found")).Once()
			},
			wantErr: true,
			errMsg:  "user not found",
		},
		{
			name:     "неверный пароль",
			username: "testuser",
			password: "wrongpassword",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").Return(testUser, nil).Once()
			},
			wantErr: true,
			errMsg:  "invalid credentials",
		},
		{
			name:     "ошибка генерации токена",
			username: "testuser",
			password: rawPassword,
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").Return(testUser, nil).Once()
				j.On("GenerateToken", "testuser", "user", "user-uid-1").Return("", errors.New("token error")).Once()
			},
			wantErr: true,
			errMsg:  "token error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := auth.NewAuthService(repo, jwtMock)

			tt.setupMocks(repo, jwtMock)

			token, role, userUID, err := svc.Login(context.Background(), tt.username, tt.password)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
				assert.Equal(t, tt.wantRole, role)
				assert.Equal(t, tt.wantUID, userUID)
			}

			repo.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	validClaims := &customjwt.CustomClaims{
		Username: "testuser",
		Role:     "user",
		UserUID:  "user-uid-1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	tests := []struct {
		name       string
		token      string
		setupMocks func(j *JwtMakerMock)
		wantUser   *models.User
		wantRole   string
		wantValid  bool
		wantErr    bool
		errMsg     string
	}{
		{
			name:  "валидный токен",
			token: "valid-token",
			setupMocks: func(j *JwtMakerMock) {
				j.On("ParseToken", "valid-token").Return(validClaims, nil).Once()
			},
			wantUser: &models.User{
				Username: "testuser",
				Role:     "user",
				UID:      "user-uid-1",
			},
			wantRole:  "user",
			wantValid: true,
			wantErr:   false,
		},
		{
			name:  "невалидный токен",
			token: "invalid-token",
			setupMocks: func(j *JwtMakerMock) {
				j.On("ParseToken", "invalid-token").Return(nil, errors.New("invalid token")).Once()
			},
			wantErr: true,
			errMsg:  "invalid token",
		},
		{
			name:  "просроченный токен",
			token: "expired-token",
			setupMocks: func(j *JwtMakerMock) {
				j.On("ParseToken", "expired-token").Return(nil, errors.New("token expired")).Once()
			},
			wantErr: true,
			errMsg:  "token expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jwtMock := new(JwtMakerMock)
			svc := auth.NewAuthService(new(UserRepoMock), jwtMock)

			tt.setupMocks(jwtMock)

			user, role, valid, err := svc.ValidateToken(context.Background(), tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, tt.wantRole, role)
			assert.Equal(t, tt.wantValid, valid)

			jwtMock.AssertExpectations(t)
		})
	}
}
