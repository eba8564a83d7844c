package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/saas-sync/internal/models"
)

// CreateSubscription сохраняет новую подписку и возвращает созданную строку.
// Вставка идемпотентна по идентификатору подписки провайдера: повторная
// доставка завершённого checkout возвращает ErrAlreadyExists, вторая строка
// не появляется.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.Status == "" {
		sub.Status = models.SubscriptionStatusInactive
	}

	query := `INSERT INTO subscriptions (id, user_id, payment_customer_id,
			      payment_subscription_id, status, price_id, current_period_end)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (payment_subscription_id) DO NOTHING
			  RETURNING id, user_id, payment_customer_id, payment_subscription_id,
			      status, price_id, current_period_end, created_at, updated_at`
	row := s.DB.QueryRowContext(ctx, query,
		sub.ID, sub.UserID, sub.PaymentCustomerID, sub.PaymentSubscriptionID,
		sub.Status, sub.PriceID, sub.CurrentPeriodEnd)

	created, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// UpdateSubscriptionByProviderID обновляет статус, тариф и конец периода
// по идентификатору подписки у провайдера. Возвращает количество изменённых
// строк; ноль — событие обновления пришло раньше завершённого checkout.
func (s *Storage) UpdateSubscriptionByProviderID(ctx context.Context, providerSubscriptionID, status string, priceID *string, currentPeriodEnd *time.Time) (int64, error) {
	const op = "storage.UpdateSubscriptionByProviderID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1, price_id = $2, current_period_end = $3, updated_at = now()
			  WHERE payment_subscription_id = $4`
	result, err := s.DB.ExecContext(ctx, query, status, priceID, currentPeriodEnd, providerSubscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// CancelSubscriptionByProviderID переводит подписку в статус canceled.
// Строка сохраняется: история платежей не удаляется, остальные поля
// не трогаются.
func (s *Storage) CancelSubscriptionByProviderID(ctx context.Context, providerSubscriptionID string) (int64, error) {
	const op = "storage.CancelSubscriptionByProviderID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1, updated_at = now()
			  WHERE payment_subscription_id = $2`
	result, err := s.DB.ExecContext(ctx, query, models.SubscriptionStatusCanceled, providerSubscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// scanSubscription читает одну строку subscriptions в модель.
func scanSubscription(row *sql.Row) (*models.Subscription, error) {
	var sub models.Subscription
	var providerID, priceID sql.NullString
	var periodEnd sql.NullTime
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.PaymentCustomerID, &providerID,
		&sub.Status, &priceID, &periodEnd, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if providerID.Valid {
		sub.PaymentSubscriptionID = &providerID.String
	}
	if priceID.Valid {
		sub.PriceID = &priceID.String
	}
	if periodEnd.Valid {
		sub.CurrentPeriodEnd = &periodEnd.Time
	}
	return &sub, nil
}
