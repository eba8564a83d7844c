// Package identity содержит бизнес-логику синхронизации локальных
// пользователей с внешним identity-провайдером: применение webhook-событий
// created/updated/deleted и JIT-провижининг при аутентифицированном доступе.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/saas-sync/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-sync/internal/lib/sl"
	"github.com/magabrotheeeer/saas-sync/internal/metrics"
	"github.com/magabrotheeeer/saas-sync/internal/models"
	"github.com/magabrotheeeer/saas-sync/internal/storage/repository"
)

// ErrMissingEmail событие создания пользователя не содержит ни одного
// адреса почты. Обработчик отвечает HTTP 400, хранилище не трогается.
var ErrMissingEmail = errors.New("no email found in event")

// UserRepository определяет методы хранилища, нужные реконсилеру.
type UserRepository interface {
	// CreateUser добавляет пользователя; повтор по identity_id — ErrAlreadyExists.
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	// GetUserByIdentityID возвращает пользователя с подпиской по внешнему ID.
	GetUserByIdentityID(ctx context.Context, identityID string) (*models.UserWithSubscription, error)
	// UpdateUserByIdentityID обновляет запись, возвращает число изменённых строк.
	UpdateUserByIdentityID(ctx context.Context, identityID, email string, name, avatarURL *string) (int64, error)
	// DeleteUserByIdentityID удаляет запись, возвращает число удалённых строк.
	DeleteUserByIdentityID(ctx context.Context, identityID string) (int64, error)
}

// Notifier описывает отправку приветственного уведомления.
type Notifier interface {
	SendWelcome(email string, name *string) error
}

// Service реализует реконсилер identity-событий и JIT-провижининг.
type Service struct {
	repo     UserRepository
	notifier Notifier
	log      *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(repo UserRepository, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      log,
	}
}

// ProcessEvent применяет одно webhook-событие identity-провайдера.
// Событие уже прошло проверку подписи.
func (s *Service) ProcessEvent(ctx context.Context, evt *models.IdentityEvent) error {
	const op = "identity.ProcessEvent"

	switch evt.Type {
	case models.IdentityEventUserCreated:
		return s.applyCreated(ctx, evt)
	case models.IdentityEventUserUpdated:
		return s.applyUpdated(ctx, evt)
	case models.IdentityEventUserDeleted:
		return s.applyDeleted(ctx, evt)
	default:
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultIgnored).Inc()
		s.log.Info("ignored identity event", slog.String("op", op), slog.String("type", evt.Type))
		return nil
	}
}

func (s *Service) applyCreated(ctx context.Context, evt *models.IdentityEvent) error {
	const op = "identity.applyCreated"

	email := evt.Data.PrimaryEmail()
	if email == "" {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, ErrMissingEmail)
	}

	user := models.User{
		IdentityID: evt.Data.ID,
		Email:      email,
		Name:       displayName(evt.Data.FirstName, evt.Data.LastName),
		AvatarURL:  optional(evt.Data.ImageURL),
	}

	created, err := s.repo.CreateUser(ctx, user)
	if errors.Is(err, repository.ErrAlreadyExists) {
		// Повторная доставка события или проигранная гонка с
		// JIT-провижинингом: строка уже есть, письмо не дублируем.
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultDuplicate).Inc()
		s.log.Warn("user already exists", slog.String("op", op), slog.String("identity_id", evt.Data.ID))
		return nil
	}
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultApplied).Inc()
	s.log.Info("created user from identity event", slog.String("user_id", created.ID))

	// Приветственное письмо не должно ни задержать ответ, ни откатить вставку.
	go func(email string, name *string) {
		if err := s.notifier.SendWelcome(email, name); err != nil {
			s.log.Error("failed to send welcome notification", sl.Err(err))
		}
	}(created.Email, created.Name)

	return nil
}

func (s *Service) applyUpdated(ctx context.Context, evt *models.IdentityEvent) error {
	const op = "identity.applyUpdated"

	email := evt.Data.PrimaryEmail()
	if email == "" {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, ErrMissingEmail)
	}

	rows, err := s.repo.UpdateUserByIdentityID(ctx, evt.Data.ID, email,
		displayName(evt.Data.FirstName, evt.Data.LastName), optional(evt.Data.ImageURL))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		// Событие обновления пришло раньше события создания.
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultNoop).Inc()
		s.log.Warn("update matched no user", slog.String("op", op), slog.String("identity_id", evt.Data.ID))
		return nil
	}
	metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultApplied).Inc()
	return nil
}

func (s *Service) applyDeleted(ctx context.Context, evt *models.IdentityEvent) error {
	const op = "identity.applyDeleted"

	if evt.Data.ID == "" {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultNoop).Inc()
		return nil
	}

	rows, err := s.repo.DeleteUserByIdentityID(ctx, evt.Data.ID)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultNoop).Inc()
		s.log.Warn("delete matched no user", slog.String("op", op), slog.String("identity_id", evt.Data.ID))
		return nil
	}
	metrics.WebhookEvents.WithLabelValues(metrics.ProviderIdentity, evt.Type, metrics.ResultApplied).Inc()
	return nil
}

// EnsureUser гарантирует существование локальной записи для
// аутентифицированной личности, создавая её при первом обращении
// (JIT-провижининг). Повторные вызовы в рамках одного запроса
// схлопываются request-scoped кэшем в один поход в хранилище.
func (s *Service) EnsureUser(ctx context.Context, ident *models.Identity) (*models.UserWithSubscription, error) {
	load := func() (*models.UserWithSubscription, error) {
		return s.lookupOrCreate(ctx, ident)
	}
	if cache, ok := middlewarectx.UserCacheFromContext(ctx); ok {
		return cache.Do(ident.ID, load)
	}
	return load()
}

func (s *Service) lookupOrCreate(ctx context.Context, ident *models.Identity) (*models.UserWithSubscription, error) {
	const op = "identity.lookupOrCreate"

	existing, err := s.repo.GetUserByIdentityID(ctx, ident.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.repo.CreateUser(ctx, models.User{
		IdentityID: ident.ID,
		Email:      ident.Email,
		Name:       ident.Name,
		AvatarURL:  ident.AvatarURL,
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		// Гонка с webhook-событием создания: перечитываем чужую строку.
		return s.repo.GetUserByIdentityID(ctx, ident.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("provisioned user just-in-time", slog.String("user_id", created.ID))

	// Подписки быть не может: строки пользователя только что не было.
	return &models.UserWithSubscription{User: *created, Subscription: nil}, nil
}

// displayName склеивает имя и фамилию через пробел; обе пустые — nil.
func displayName(firstName, lastName string) *string {
	var parts []string
	for _, part := range []string{firstName, lastName} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	name := strings.Join(parts, " ")
	return &name
}

// optional возвращает nil для пустой строки.
func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
