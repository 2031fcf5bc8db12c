package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ibizainsider/entitlement-service/internal/models"
)

// GetEntitlement возвращает текущее право доступа пользователя. Если записи
// еще нет, создается запись по умолчанию (has_premium_access = FALSE) —
// сквозное чтение, а не выдача доступа.
func (s *Storage) GetEntitlement(ctx context.Context, userUID string) (*models.Entitlement, error) {
	const op = "storage.GetEntitlement"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO entitlements (user_uid) VALUES ($1)
		 ON CONFLICT (user_uid) DO NOTHING`, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT user_uid, has_premium_access, granted_via, grant_reference, granted_at
			  FROM entitlements
			  WHERE user_uid = $1`
	e := &models.Entitlement{}
	var via, ref sql.NullString
	var grantedAt sql.NullTime
	row := s.DB.QueryRowContext(ctx, query, userUID)
	if err := row.Scan(&e.UserUID, &e.HasPremiumAccess, &via, &ref, &grantedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if via.Valid {
		e.GrantedVia = models.GrantVia(via.String)
	}
	if ref.Valid {
		e.GrantReference = ref.String
	}
	if grantedAt.Valid {
		e.GrantedAt = &grantedAt.Time
	}
	return e, nil
}

// GrantEntitlement выполняет одностороннюю выдачу премиум-доступа.
// Первая зафиксированная запись побеждает: если доступ уже выдан, вызов
// ничего не меняет и возвращает granted = false, атрибуция исходной выдачи
// (granted_via, grant_reference, granted_at) не перезаписывается. Гонка
// выдачи по промокоду и по платежу для одного пользователя разрешается
// этим же оператором на стороне базы.
func (s *Storage) GrantEntitlement(ctx context.Context, userUID string, via models.GrantVia, reference string) (bool, error) {
	const op = "storage.GrantEntitlement"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO entitlements (user_uid, has_premium_access, granted_via, grant_reference, granted_at)
			  VALUES ($1, TRUE, $2, $3, NOW())
			  ON CONFLICT (user_uid) DO UPDATE
			  SET has_premium_access = TRUE,
			      granted_via = EXCLUDED.granted_via,
			      grant_reference = EXCLUDED.grant_reference,
			      granted_at = EXCLUDED.granted_at
			  WHERE entitlements.has_premium_access = FALSE
			  RETURNING user_uid`
	var uid string
	err := s.DB.QueryRowContext(ctx, query, userUID, string(via), reference).Scan(&uid)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		// Доступ уже был выдан раньше, повторная выдача — no-op.
		return false, nil
	}
	return false, fmt.Errorf("%s: %w", op, err)
}
