package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ibizainsider/entitlement-service/internal/models"
)

// InsertPayment сохраняет неизменяемую запись о завершенном платеже.
// payment_id служит ключом идемпотентности: повторная вставка с тем же
// payment_id не создает новую строку, а возвращает уже существующую
// запись вместе с ErrDuplicatePayment. Вставка и проверка дубликата —
// один оператор, отдельного чтения перед записью нет.
func (s *Storage) InsertPayment(ctx context.Context, rec models.PaymentRecord) (*models.PaymentRecord, error) {
	const op = "storage.InsertPayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (user_uid, payment_id, status, amount, currency, payment_method)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (payment_id) DO NOTHING
			  RETURNING id, created_at`
	row := s.DB.QueryRowContext(ctx, query,
		rec.UserUID, rec.PaymentID, rec.Status, rec.Amount, rec.Currency, rec.PaymentMethod)
	err := row.Scan(&rec.ID, &rec.CreatedAt)
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	existing, err := s.GetPaymentByID(ctx, rec.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return existing, ErrDuplicatePayment
}

// GetPaymentByID возвращает запись о платеже по внешнему payment_id.
func (s *Storage) GetPaymentByID(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	const op = "storage.GetPaymentByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, payment_id, status, amount, currency, payment_method, created_at
			  FROM payments
			  WHERE payment_id = $1`
	p := &models.PaymentRecord{}
	row := s.DB.QueryRowContext(ctx, query, paymentID)
	if err := row.Scan(&p.ID, &p.UserUID, &p.PaymentID, &p.Status, &p.Amount,
		&p.Currency, &p.PaymentMethod, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPaymentsByUser возвращает платежи пользователя для поддержки и аудита.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userUID string) ([]*models.PaymentRecord, error) {
	const op = "storage.ListPaymentsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, payment_id, status, amount, currency, payment_method, created_at
			  FROM payments
		      WHERE user_uid = $1
			  ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PaymentRecord
	for rows.Next() {
		var p models.PaymentRecord
		if err := rows.Scan(&p.ID, &p.UserUID, &p.PaymentID, &p.Status, &p.Amount,
			&p.Currency, &p.PaymentMethod, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
