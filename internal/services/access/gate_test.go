package access

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ibizainsider/entitlement-service/internal/models"
	"github.com/ibizainsider/entitlement-service/internal/services/promo"
	"github.com/ibizainsider/entitlement-service/internal/storage/repository"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) RedeemPromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PromoCode), args.Error(1)
}

func (m *MockRepository) InsertPayment(ctx context.Context, rec models.PaymentRecord) (*models.PaymentRecord, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentRecord), args.Error(1)
}

func (m *MockRepository) GetEntitlement(ctx context.Context, userUID string) (*models.Entitlement, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entitlement), args.Error(1)
}

func (m *MockRepository) GrantEntitlement(ctx context.Context, userUID string, via models.GrantVia, reference string) (bool, error) {
	args := m.Called(ctx, userUID, via, reference)
	return args.Bool(0), args.Error(1)
}

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(ctx context.Context, raw string) (string, error) {
	args := m.Called(ctx, raw)
	return args.String(0), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	if args.Bool(0) {
		*(result.(*bool)) = true
	}
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) PublishGranted(event models.GrantedEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGate(repo *MockRepository, validator *MockValidator,
	cache *MockCache, events *MockEvents) *Gate {
	return NewGate(repo, validator, cache, events, discardLogger(), 5*time.Second)
}

var testIdentity = models.Identity{
	UID:   "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
	Email: "resident@example.com",
}

func TestGate_OnSignup(t *testing.T) {
	launchCode := &models.PromoCode{Code: "LAUNCH2024", IsActive: true, UsesCount: 5}

	tests := []struct {
		name           string
		rawCode        string
		setupMocks     func(repo *MockRepository, validator *MockValidator, cache *MockCache, events *MockEvents)
		wantGranted    bool
		wantCode       string
		wantErrIs      error
		wantNoWarnings bool
	}{
		{
			name:    "Успешное погашение промокода выдает доступ",
			rawCode: " launch2024 ",
			setupMocks: func(repo *MockRepository, validator *MockValidator, cache *MockCache, events *MockEvents) {
				validator.On("Validate", mock.Anything, " launch2024 ").Return("LAUNCH2024", nil)
				repo.On("RedeemPromoCode", mock.Anything, "LAUNCH2024").Return(launchCode, nil)
				repo.On("GrantEntitlement", mock.Anything, testIdentity.UID,
					models.GrantViaPromoCode, "LAUNCH2024").Return(true, nil)
				cache.On("Set", mock.Anything, "entitlement:"+testIdentity.UID, true, mock.Anything).
					Return(nil)
				events.On("PublishGranted", mock.MatchedBy(func(e models.GrantedEvent) bool {
					return e.UserUID == testIdentity.UID && e.Via == models.GrantViaPromoCode
				})).Return(nil)
			},
			wantGranted:    true,
			wantCode:       "LAUNCH2024",
			wantNoWarnings: true,
		},
		{
			name:           "Пустой промокод пропускается без обращений к хранилищу",
			rawCode:        "   ",
			setupMocks:     func(*MockRepository, *MockValidator, *MockCache, *MockEvents) {},
			wantNoWarnings: true,
		},
		{
			name:    "Отказ валидации не выдает доступ и не гасит код",
			rawCode: "wrong!",
			setupMocks: func(repo *MockRepository, validator *MockValidator, cache *MockCache, events *MockEvents) {
				validator.On("Validate", mock.Anything, "wrong!").
					Return("", promo.ErrMalformedCode)
			},
			wantErrIs: promo.ErrMalformedCode,
		},
		{
			name:    "Код исчерпан между проверкой и погашением",
			rawCode: "LAUNCH2024",
			setupMocks: func(repo *MockRepository, validator *MockValidator, cache *MockCache, events *MockEvents) {
				validator.On("Validate", mock.Anything, "LAUNCH2024").Return("LAUNCH2024", nil)
				repo.On("RedeemPromoCode", mock.Anything, "LAUNCH2024").
					Return(nil, repository.ErrPromoExhausted)
			},
			wantErrIs: repository.ErrPromoExhausted,
		},
		{
			name:    "Повторная выдача уже премиум-пользователю не считается ошибкой",
			rawCode: "LAUNCH2024",
			setupMocks: func(repo *MockRepository, validator *MockValidator, cache *MockCache, events *MockEvents) {
				validator.On("Validate", mock.Anything, "LAUNCH2024").Return("LAUNCH2024", nil)
				repo.On("RedeemPromoCode", mock.Anything, "LAUNCH2024").Return(launchCode, nil)
				repo.On("GrantEntitlement", mock.Anything, testIdentity.UID,
					models.GrantViaPromoCode, "LAUNCH2024").Return(false, nil)
			},
			wantGranted:    true,
			wantCode:       "LAUNCH2024",
			wantNoWarnings: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			validator := new(MockValidator)
			cache := new(MockCache)
			events := new(MockEvents)
			tt.setupMocks(repo, validator, cache, events)

			gate := newTestGate(repo, validator, cache, events)
			res := gate.OnSignup(context.Background(), testIdentity, tt.rawCode)

			assert.Equal(t, tt.wantGranted, res.PremiumGranted)
			assert.Equal(t, tt.wantCode, res.PromoCode)
			if tt.wantNoWarnings {
				assert.NoError(t, res.PromoErr)
			}
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, res.PromoErr, tt.wantErrIs)
			}
			repo.AssertExpectations(t)
			validator.AssertExpectations(t)
		})
	}
}

func TestGate_OnPaymentConfirmed(t *testing.T) {
	const paymentID = "PAYPAL-8XY12345AB"

	tests := []struct {
		name          string
		setupMocks    func(repo *MockRepository, cache *MockCache, events *MockEvents)
		wantProcessed bool
		wantErrIs     error
		wantErr       bool
	}{
		{
			name: "Новый платеж записывается и выдает доступ",
			setupMocks: func(repo *MockRepository, cache *MockCache, events *MockEvents) {
				repo.On("InsertPayment", mock.Anything, mock.MatchedBy(func(rec models.PaymentRecord) bool {
					return rec.PaymentID == paymentID && rec.Status == models.StatusCompleted
				})).Return(&models.PaymentRecord{UserUID: testIdentity.UID, PaymentID: paymentID}, nil)
				repo.On("GrantEntitlement", mock.Anything, testIdentity.UID,
					models.GrantViaPayment, paymentID).Return(true, nil)
				cache.On("Set", mock.Anything, "entitlement:"+testIdentity.UID, true, mock.Anything).
					Return(nil)
				events.On("PublishGranted", mock.Anything).Return(nil)
			},
		},
		{
			name: "Повтор платежа того же пользователя идемпотентен",
			setupMocks: func(repo *MockRepository, cache *MockCache, events *MockEvents) {
				repo.On("InsertPayment", mock.Anything, mock.Anything).
					Return(&models.PaymentRecord{UserUID: testIdentity.UID, PaymentID: paymentID},
						repository.ErrDuplicatePayment)
				repo.On("GrantEntitlement", mock.Anything, testIdentity.UID,
					models.GrantViaPayment, paymentID).Return(false, nil)
			},
			wantProcessed: true,
		},
		{
			name: "Платеж с чужим payment_id отклоняется без выдачи доступа",
			setupMocks: func(repo *MockRepository, cache *MockCache, events *MockEvents) {
				repo.On("InsertPayment", mock.Anything, mock.Anything).
					Return(&models.PaymentRecord{UserUID: "another-user", PaymentID: paymentID},
						repository.ErrDuplicatePayment)
			},
			wantErrIs: ErrPaymentOwnedByAnother,
			wantErr:   true,
		},
		{
			name: "Сбой хранилища возвращается вызывающему для повтора",
			setupMocks: func(repo *MockRepository, cache *MockCache, events *MockEvents) {
				repo.On("InsertPayment", mock.Anything, mock.Anything).
					Return(nil, errors.New("connection reset"))
			},
			wantErr: true,
		},
		{
			name: "Запись платежа удалась, но выдача доступа упала",
			setupMocks: func(repo *MockRepository, cache *MockCache, events *MockEvents) {
				repo.On("InsertPayment", mock.Anything, mock.Anything).
					Return(&models.PaymentRecord{UserUID: testIdentity.UID, PaymentID: paymentID}, nil)
				repo.On("GrantEntitlement", mock.Anything, testIdentity.UID,
					models.GrantViaPayment, paymentID).Return(false, errors.New("timeout"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			cache := new(MockCache)
			events := new(MockEvents)
			tt.setupMocks(repo, cache, events)

			gate := newTestGate(repo, new(MockValidator), cache, events)
			processed, err := gate.OnPaymentConfirmed(context.Background(), testIdentity,
				paymentID, models.PremiumPrice, models.PremiumCurrency, "paypal")

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantErrIs != nil {
					assert.ErrorIs(t, err, tt.wantErrIs)
				}
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantProcessed, processed)
			repo.AssertExpectations(t)
		})
	}
}

func TestGate_Check(t *testing.T) {
	uid := testIdentity.UID
	key := "entitlement:" + uid

	tests := []struct {
		name       string
		setupMocks func(repo *MockRepository, cache *MockCache)
		want       bool
		wantErr    bool
	}{
		{
			name: "Попадание в кеш не обращается к хранилищу",
			setupMocks: func(repo *MockRepository, cache *MockCache) {
				cache.On("Get", mock.Anything, key, mock.Anything).Return(true, nil)
			},
			want: true,
		},
		{
			name: "Промах кеша и премиум в базе кладет положительный ответ в кеш",
			setupMocks: func(repo *MockRepository, cache *MockCache) {
				cache.On("Get", mock.Anything, key, mock.Anything).Return(false, nil)
				repo.On("GetEntitlement", mock.Anything, uid).
					Return(&models.Entitlement{UserUID: uid, HasPremiumAccess: true}, nil)
				cache.On("Set", mock.Anything, key, true, mock.Anything).Return(nil)
			},
			want: true,
		},
		{
			name: "Отсутствие премиума не кешируется",
			setupMocks: func(repo *MockRepository, cache *MockCache) {
				cache.On("Get", mock.Anything, key, mock.Anything).Return(false, nil)
				repo.On("GetEntitlement", mock.Anything, uid).
					Return(&models.Entitlement{UserUID: uid, HasPremiumAccess: false}, nil)
			},
			want: false,
		},
		{
			name: "Ошибка кеша не мешает ответу из хранилища",
			setupMocks: func(repo *MockRepository, cache *MockCache) {
				cache.On("Get", mock.Anything, key, mock.Anything).
					Return(false, errors.New("redis down"))
				repo.On("GetEntitlement", mock.Anything, uid).
					Return(&models.Entitlement{UserUID: uid, HasPremiumAccess: true}, nil)
				cache.On("Set", mock.Anything, key, true, mock.Anything).Return(nil)
			},
			want: true,
		},
		{
			name: "Ошибка хранилища пробрасывается наверх",
			setupMocks: func(repo *MockRepository, cache *MockCache) {
				cache.On("Get", mock.Anything, key, mock.Anything).Return(false, nil)
				repo.On("GetEntitlement", mock.Anything, uid).
					Return(nil, errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			cache := new(MockCache)
			tt.setupMocks(repo, cache)

			gate := newTestGate(repo, new(MockValidator), cache, new(MockEvents))
			got, err := gate.Check(context.Background(), uid)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}
