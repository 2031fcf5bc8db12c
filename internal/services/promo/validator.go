// Package promo реализует проверку промокодов без побочных эффектов.
// Validator можно вызывать сколько угодно раз (например, для предварительной
// проверки кода в форме регистрации) — счетчик использований не изменяется.
package promo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ibizainsider/entitlement-service/internal/models"
	"github.com/ibizainsider/entitlement-service/internal/storage/repository"
)

// ErrMalformedCode возвращается, когда код после нормализации пуст или
// содержит символы вне [A-Z0-9].
var ErrMalformedCode = errors.New("malformed promo code")

var codePattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// Registry описывает чтение реестра промокодов.
type Registry interface {
	GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error)
}

// Validator проверяет промокоды по реестру.
type Validator struct {
	registry Registry
	log      *slog.Logger
}

// NewValidator создает новый Validator.
func NewValidator(registry Registry, log *slog.Logger) *Validator {
	return &Validator{
		registry: registry,
		log:      log,
	}
}

// Normalize приводит пользовательский ввод к каноническому виду:
// обрезает пробелы и переводит в верхний регистр. Регистр ввода не важен.
func Normalize(raw string) (string, error) {
	canonical := strings.ToUpper(strings.TrimSpace(raw))
	if canonical == "" || !codePattern.MatchString(canonical) {
		return "", ErrMalformedCode
	}
	return canonical, nil
}

// Validate нормализует код и выносит вердикт по реестру: ErrMalformedCode,
// repository.ErrPromoNotFound, ErrPromoInactive или ErrPromoExhausted.
// При успехе возвращает канонический код.
func (v *Validator) Validate(ctx context.Context, raw string) (string, error) {
	const op = "promo.Validate"

	canonical, err := Normalize(raw)
	if err != nil {
		return "", err
	}

	code, err := v.registry.GetPromoCode(ctx, canonical)
	if err != nil {
		if errors.Is(err, repository.ErrPromoNotFound) {
			return "", repository.ErrPromoNotFound
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !code.IsActive {
		return "", repository.ErrPromoInactive
	}
	if code.Exhausted() {
		return "", repository.ErrPromoExhausted
	}
	return canonical, nil
}
