package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ibizainsider/entitlement-service/internal/models"
)

// GetPromoCode возвращает промокод по каноническому коду. Чтение без
// побочных эффектов, счетчик использований не изменяется.
func (s *Storage) GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	const op = "storage.GetPromoCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT code, is_active, uses_count, max_uses, created_at
			  FROM promo_codes
			  WHERE code = $1`
	p := &models.PromoCode{}
	var maxUses sql.NullInt64
	row := s.DB.QueryRowContext(ctx, query, code)
	if err := row.Scan(&p.Code, &p.IsActive, &p.UsesCount, &maxUses, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromoNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if maxUses.Valid {
		v := int(maxUses.Int64)
		p.MaxUses = &v
	}
	return p, nil
}

// RedeemPromoCode атомарно потребляет одно использование промокода.
// Активность кода и лимит проверяются в момент инкремента одним условным
// UPDATE, а не отдельным чтением перед записью: параллельные погашения
// никогда не увеличат uses_count выше max_uses.
//
// Это единственная операция, изменяющая uses_count. Погашение не привязано
// к пользователю: два вызова потребляют два использования.
func (s *Storage) RedeemPromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	const op = "storage.RedeemPromoCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE promo_codes
			  SET uses_count = uses_count + 1
		      WHERE code = $1
			        AND is_active = TRUE
			        AND (max_uses IS NULL OR uses_count < max_uses)
			  RETURNING code, is_active, uses_count, max_uses, created_at`
	p := &models.PromoCode{}
	var maxUses sql.NullInt64
	row := s.DB.QueryRowContext(ctx, query, code)
	err := row.Scan(&p.Code, &p.IsActive, &p.UsesCount, &maxUses, &p.CreatedAt)
	if err == nil {
		if maxUses.Valid {
			v := int(maxUses.Int64)
			p.MaxUses = &v
		}
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Инкремент не прошел: повторное чтение только для классификации отказа.
	existing, err := s.GetPromoCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrPromoNotFound) {
			return nil, ErrPromoNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !existing.IsActive {
		return nil, ErrPromoInactive
	}
	if existing.Exhausted() {
		return nil, ErrPromoExhausted
	}
	return nil, fmt.Errorf("%s: promo code state changed concurrently", op)
}

// DeactivatePromoCode помечает промокод неактивным. Коды не удаляются.
func (s *Storage) DeactivatePromoCode(ctx context.Context, code string) error {
	const op = "storage.DeactivatePromoCode"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE promo_codes SET is_active = FALSE WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return ErrPromoNotFound
	}
	return nil
}
