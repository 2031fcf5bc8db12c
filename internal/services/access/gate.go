// Package access реализует фасад управления премиум-доступом: проверку
// права доступа, погашение промокода при регистрации и выдачу доступа по
// подтвержденному платежу.
//
// Состояние пользователя проходит путь «нет доступа» → «доступ выдан»;
// обратного перехода нет. Счетчик промокода и флаг доступа изменяются
// только атомарными операциями хранилища, фасад никогда не делает
// чтение-изменение-запись сам.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
	"github.com/ibizainsider/entitlement-service/internal/metrics"
	"github.com/ibizainsider/entitlement-service/internal/models"
	"github.com/ibizainsider/entitlement-service/internal/services/promo"
	"github.com/ibizainsider/entitlement-service/internal/storage/repository"
)

// ErrPaymentOwnedByAnother возвращается, когда payment_id уже записан
// за другим пользователем. Доступ при этом не выдается.
var ErrPaymentOwnedByAnother = errors.New("payment id belongs to another user")

// Время жизни кеша положительного права доступа. Флаг монотонен, поэтому
// закешированное true не может устареть; TTL лишь ограничивает память.
const entitlementCacheTTL = 24 * time.Hour

// Repository описывает атомарные операции хранилища, которые использует фасад.
type Repository interface {
	// RedeemPromoCode атомарно потребляет одно использование промокода.
	RedeemPromoCode(ctx context.Context, code string) (*models.PromoCode, error)
	// InsertPayment идемпотентно сохраняет запись о платеже.
	InsertPayment(ctx context.Context, rec models.PaymentRecord) (*models.PaymentRecord, error)
	// GetEntitlement возвращает право доступа, создавая запись по умолчанию.
	GetEntitlement(ctx context.Context, userUID string) (*models.Entitlement, error)
	// GrantEntitlement выполняет одностороннюю выдачу доступа.
	GrantEntitlement(ctx context.Context, userUID string, via models.GrantVia, reference string) (bool, error)
}

// Validator описывает проверку промокода без побочных эффектов.
type Validator interface {
	Validate(ctx context.Context, raw string) (string, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Events описывает публикацию событий о выдаче доступа.
type Events interface {
	PublishGranted(event models.GrantedEvent) error
}

// Gate — фасад премиум-доступа, который вызывает презентационный слой.
type Gate struct {
	repo           Repository
	validator      Validator
	cache          Cache
	events         Events
	log            *slog.Logger
	storageTimeout time.Duration
}

// NewGate создает новый Gate. events может быть nil, тогда события не публикуются.
func NewGate(repo Repository, validator Validator, cache Cache, events Events,
	log *slog.Logger, storageTimeout time.Duration) *Gate {
	return &Gate{
		repo:           repo,
		validator:      validator,
		cache:          cache,
		events:         events,
		log:            log,
		storageTimeout: storageTimeout,
	}
}

// SignupResult — итог обработки промокода при регистрации. Ошибка промокода
// никогда не проваливает регистрацию, она лишь сохраняется для сообщения
// пользователю.
type SignupResult struct {
	PremiumGranted bool   // Выдан ли премиум-доступ
	PromoCode      string // Канонический код, если он был погашен
	PromoErr       error  // Причина отказа по промокоду, если была
}

func entitlementKey(userUID string) string {
	return fmt.Sprintf("entitlement:%s", userUID)
}

// storageCtx ограничивает операцию хранилища настроенным таймаутом.
// Истекший таймаут трактуется как сбой персистентности, а не как успех.
func (g *Gate) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.storageTimeout)
}

// OnSignup обрабатывает необязательный промокод после того, как запись
// пользователя надежно создана. Погашение вызывается не более одного раза
// за попытку регистрации: сначала проверка для ранней обратной связи, затем
// одно атомарное погашение, затем выдача доступа.
func (g *Gate) OnSignup(ctx context.Context, identity models.Identity, rawPromoCode string) SignupResult {
	const op = "access.OnSignup"
	if strings.TrimSpace(rawPromoCode) == "" {
		return SignupResult{}
	}
	log := g.log.With(slog.String("op", op), slog.String("user_uid", identity.UID))

	sctx, cancel := g.storageCtx(ctx)
	canonical, err := g.validator.Validate(sctx, rawPromoCode)
	cancel()
	if err != nil {
		metrics.PromoRedemptions.WithLabelValues(redemptionOutcome(err)).Inc()
		log.Info("promo code rejected at validation", sl.Err(err))
		return SignupResult{PromoErr: err}
	}

	sctx, cancel = g.storageCtx(ctx)
	code, err := g.repo.RedeemPromoCode(sctx, canonical)
	cancel()
	if err != nil {
		// Код мог быть исчерпан или деактивирован между проверкой и погашением.
		metrics.PromoRedemptions.WithLabelValues(redemptionOutcome(err)).Inc()
		log.Info("promo code redemption failed", sl.Err(err))
		return SignupResult{PromoErr: err}
	}
	metrics.PromoRedemptions.WithLabelValues("redeemed").Inc()
	log.Info("promo code redeemed", slog.String("code", code.Code))

	if err := g.grant(ctx, identity, models.GrantViaPromoCode, code.Code); err != nil {
		log.Error("failed to grant entitlement after redemption", sl.Err(err))
		return SignupResult{PromoCode: code.Code, PromoErr: err}
	}
	return SignupResult{PremiumGranted: true, PromoCode: code.Code}
}

// OnPaymentConfirmed записывает завершенный платеж и выдает премиум-доступ.
// Повторная отправка того же payment_id тем же пользователем не создает
// вторую запись и возвращает alreadyProcessed = true. Сбой персистентности
// возвращается вызывающему для повтора; доступ без надежно записанного
// платежа не выдается.
func (g *Gate) OnPaymentConfirmed(ctx context.Context, identity models.Identity,
	paymentID string, amount float64, currency, method string) (alreadyProcessed bool, err error) {
	const op = "access.OnPaymentConfirmed"
	log := g.log.With(slog.String("op", op),
		slog.String("user_uid", identity.UID), slog.String("payment_id", paymentID))

	rec := models.PaymentRecord{
		UserUID:       identity.UID,
		PaymentID:     paymentID,
		Status:        models.StatusCompleted,
		Amount:        amount,
		Currency:      currency,
		PaymentMethod: method,
	}

	sctx, cancel := g.storageCtx(ctx)
	stored, err := g.repo.InsertPayment(sctx, rec)
	cancel()
	switch {
	case err == nil:
		metrics.PaymentsRecorded.WithLabelValues("recorded").Inc()
		log.Info("payment recorded")
	case errors.Is(err, repository.ErrDuplicatePayment):
		if stored == nil || stored.UserUID != identity.UID {
			metrics.PaymentsRecorded.WithLabelValues("conflict").Inc()
			log.Error("duplicate payment id belongs to another user")
			return false, ErrPaymentOwnedByAnother
		}
		alreadyProcessed = true
		metrics.PaymentsRecorded.WithLabelValues("duplicate").Inc()
		log.Info("payment already recorded, treating as processed")
	default:
		metrics.PaymentsRecorded.WithLabelValues("error").Inc()
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := g.grant(ctx, identity, models.GrantViaPayment, paymentID); err != nil {
		return alreadyProcessed, fmt.Errorf("%s: %w", op, err)
	}
	return alreadyProcessed, nil
}

// Check возвращает текущее право доступа пользователя — предикат, которым
// пользуются все премиум-функции.
func (g *Gate) Check(ctx context.Context, userUID string) (bool, error) {
	const op = "access.Check"

	var cached bool
	found, err := g.cache.Get(ctx, entitlementKey(userUID), &cached)
	if err != nil {
		g.log.Warn("entitlement cache read failed", sl.Err(err))
	}
	if found && cached {
		return true, nil
	}

	sctx, cancel := g.storageCtx(ctx)
	defer cancel()
	ent, err := g.repo.GetEntitlement(sctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !ent.HasPremiumAccess {
		// Отрицательный ответ не кешируется: только true не может устареть.
		return false, nil
	}
	if err := g.cache.Set(ctx, entitlementKey(userUID), true, entitlementCacheTTL); err != nil {
		g.log.Warn("failed to cache entitlement", sl.Err(err))
	}
	return true, nil
}

// Entitlement возвращает право доступа целиком, включая атрибуцию выдачи.
func (g *Gate) Entitlement(ctx context.Context, userUID string) (*models.Entitlement, error) {
	const op = "access.Entitlement"
	sctx, cancel := g.storageCtx(ctx)
	defer cancel()
	ent, err := g.repo.GetEntitlement(sctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ent, nil
}

// grant выполняет выдачу доступа и сопутствующие побочные эффекты.
// Кеш и событие обновляются только после фиксации в базе; их сбой не
// отменяет выдачу.
func (g *Gate) grant(ctx context.Context, identity models.Identity, via models.GrantVia, reference string) error {
	sctx, cancel := g.storageCtx(ctx)
	granted, err := g.repo.GrantEntitlement(sctx, identity.UID, via, reference)
	cancel()
	if err != nil {
		return err
	}
	if !granted {
		g.log.Info("entitlement already granted, original attribution kept",
			slog.String("user_uid", identity.UID))
		return nil
	}
	metrics.EntitlementGrants.WithLabelValues(string(via)).Inc()

	if err := g.cache.Set(ctx, entitlementKey(identity.UID), true, entitlementCacheTTL); err != nil {
		g.log.Warn("failed to cache granted entitlement", sl.Err(err))
	}
	if g.events != nil {
		event := models.GrantedEvent{
			UserUID:   identity.UID,
			Email:     identity.Email,
			Via:       via,
			Reference: reference,
		}
		if err := g.events.PublishGranted(event); err != nil {
			g.log.Warn("failed to publish grant event", sl.Err(err))
		}
	}
	return nil
}

func redemptionOutcome(err error) string {
	switch {
	case errors.Is(err, promo.ErrMalformedCode):
		return "malformed"
	case errors.Is(err, repository.ErrPromoNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrPromoInactive):
		return "inactive"
	case errors.Is(err, repository.ErrPromoExhausted):
		return "exhausted"
	default:
		return "error"
	}
}
