package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/saas-sync/internal/models"
)

// CreateUser сохраняет нового пользователя и возвращает созданную строку.
// Вставка идемпотентна по identity_id: повторная доставка события создания
// не плодит строки, а возвращает ErrAlreadyExists.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `INSERT INTO users (id, identity_id, email, name, avatar_url)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (identity_id) DO NOTHING
			  RETURNING id, identity_id, email, name, avatar_url, created_at, updated_at`
	row := s.DB.QueryRowContext(ctx, query,
		user.ID, user.IdentityID, user.Email, user.Name, user.AvatarURL)

	created, err := scanUser(row)
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

// GetUserByID возвращает пользователя по локальному идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUserByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, identity_id, email, name, avatar_url, created_at, updated_at
			  FROM users
			  WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByIdentityID возвращает пользователя по внешнему идентификатору
// вместе с его подпиской. Отсутствие подписки — nil, не пустая строка.
func (s *Storage) GetUserByIdentityID(ctx context.Context, identityID string) (*models.UserWithSubscription, error) {
	const op = "storage.GetUserByIdentityID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.id, u.identity_id, u.email, u.name, u.avatar_url, u.created_at, u.updated_at,
			      s.id, s.user_id, s.payment_customer_id, s.payment_subscription_id,
			      s.status, s.price_id, s.current_period_end, s.created_at, s.updated_at
			  FROM users u
			  LEFT JOIN subscriptions s ON s.user_id = u.id
			  WHERE u.identity_id = $1`
	row := s.DB.QueryRowContext(ctx, query, identityID)

	var result models.UserWithSubscription
	var name, avatarURL sql.NullString
	var subID, subUserID, subCustomerID, subProviderID, subStatus, subPriceID sql.NullString
	var subPeriodEnd, subCreatedAt, subUpdatedAt sql.NullTime
	if err := row.Scan(&result.ID, &result.IdentityID, &result.Email, &name, &avatarURL,
		&result.CreatedAt, &result.UpdatedAt,
		&subID, &subUserID, &subCustomerID, &subProviderID,
		&subStatus, &subPriceID, &subPeriodEnd, &subCreatedAt, &subUpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if name.Valid {
		result.Name = &name.String
	}
	if avatarURL.Valid {
		result.AvatarURL = &avatarURL.String
	}
	if subID.Valid {
		sub := models.Subscription{
			ID:                subID.String,
			UserID:            subUserID.String,
			PaymentCustomerID: subCustomerID.String,
			Status:            subStatus.String,
			CreatedAt:         subCreatedAt.Time,
			UpdatedAt:         subUpdatedAt.Time,
		}
		if subProviderID.Valid {
			sub.PaymentSubscriptionID = &subProviderID.String
		}
		if subPriceID.Valid {
			sub.PriceID = &subPriceID.String
		}
		if subPeriodEnd.Valid {
			sub.CurrentPeriodEnd = &subPeriodEnd.Time
		}
		result.Subscription = &sub
	}
	return &result, nil
}

// UpdateUserByIdentityID обновляет данные пользователя по внешнему
// идентификатору и возвращает количество изменённых строк. Ноль строк —
// событие обновления пришло раньше события создания.
func (s *Storage) UpdateUserByIdentityID(ctx context.Context, identityID, email string, name, avatarURL *string) (int64, error) {
	const op = "storage.UpdateUserByIdentityID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET email = $1, name = $2, avatar_url = $3, updated_at = now()
			  WHERE identity_id = $4`
	result, err := s.DB.ExecContext(ctx, query, email, name, avatarURL, identityID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// DeleteUserByIdentityID удаляет пользователя по внешнему идентификатору.
// Подписка удаляется каскадно внешним ключом.
func (s *Storage) DeleteUserByIdentityID(ctx context.Context, identityID string) (int64, error) {
	const op = "storage.DeleteUserByIdentityID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM users WHERE identity_id = $1`
	result, err := s.DB.ExecContext(ctx, query, identityID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

// scanUser читает одну строку users в модель.
func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var name, avatarURL sql.NullString
	if err := row.Scan(&u.ID, &u.IdentityID, &u.Email, &name, &avatarURL,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if name.Valid {
		u.Name = &name.String
	}
	if avatarURL.Valid {
		u.AvatarURL = &avatarURL.String
	}
	return &u, nil
}
