// Package billing содержит бизнес-логику синхронизации подписок с внешним
// платёжным провайдером: применение webhook-событий оплаты и создание
// checkout-сессий для аутентифицированных пользователей.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/saas-sync/internal/lib/plans"
	"github.com/magabrotheeeer/saas-sync/internal/lib/sl"
	"github.com/magabrotheeeer/saas-sync/internal/metrics"
	"github.com/magabrotheeeer/saas-sync/internal/models"
	"github.com/magabrotheeeer/saas-sync/internal/paymentprovider"
	"github.com/magabrotheeeer/saas-sync/internal/storage/repository"
)

// ErrMissingCorrelationID в metadata checkout-сессии нет userId,
// событие невозможно привязать к локальному пользователю.
var ErrMissingCorrelationID = errors.New("no userId in session metadata")

// SubscriptionRepository определяет методы хранилища, нужные биллингу.
type SubscriptionRepository interface {
	// CreateSubscription добавляет подписку; повтор — ErrAlreadyExists.
	CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	// UpdateSubscriptionByProviderID обновляет подписку по внешнему ID.
	UpdateSubscriptionByProviderID(ctx context.Context, providerSubID, status string, priceID *string, periodEnd *time.Time) (int64, error)
	// CancelSubscriptionByProviderID помечает подписку отменённой.
	CancelSubscriptionByProviderID(ctx context.Context, providerSubID string) (int64, error)
	// GetUserByID возвращает пользователя по локальному ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// ProviderClient описывает обращения к API платёжного провайдера.
type ProviderClient interface {
	GetSubscription(ctx context.Context, id string) (*paymentprovider.Subscription, error)
	CreateCheckoutSession(ctx context.Context, req paymentprovider.CreateCheckoutSessionRequest) (*paymentprovider.CheckoutSession, error)
}

// Notifier описывает отправку уведомления об оформленной подписке.
type Notifier interface {
	SendSubscriptionConfirmed(email string, name *string, planName string) error
}

// Service реализует реконсилер платёжных событий и создание checkout-сессий.
type Service struct {
	repo     SubscriptionRepository
	provider ProviderClient
	notifier Notifier
	appURL   string
	log      *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(repo SubscriptionRepository, provider ProviderClient, notifier Notifier, appURL string, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		notifier: notifier,
		appURL:   appURL,
		log:      log,
	}
}

// ProcessEvent применяет одно webhook-событие платёжного провайдера.
// Событие уже прошло проверку подписи.
func (s *Service) ProcessEvent(ctx context.Context, evt *paymentprovider.Event) error {
	const op = "billing.ProcessEvent"

	switch evt.Type {
	case paymentprovider.EventCheckoutCompleted:
		return s.applyCheckoutCompleted(ctx, evt)
	case paymentprovider.EventSubscriptionUpdated:
		return s.applySubscriptionUpdated(ctx, evt)
	case paymentprovider.EventSubscriptionDeleted:
		return s.applySubscriptionDeleted(ctx, evt)
	default:
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultIgnored).Inc()
		s.log.Info("ignored payment event", slog.String("op", op), slog.String("type", evt.Type))
		return nil
	}
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, evt *paymentprovider.Event) error {
	const op = "billing.applyCheckoutCompleted"

	var session paymentprovider.CheckoutSession
	if err := json.Unmarshal(evt.Data.Object, &session); err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	// Разовые платежи подписку не создают.
	if session.Mode != paymentprovider.ModeSubscription || session.Subscription == "" {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultIgnored).Inc()
		s.log.Info("checkout session is not a subscription", slog.String("op", op), slog.String("session_id", session.ID))
		return nil
	}

	userID := session.Metadata["userId"]
	if userID == "" {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, ErrMissingCorrelationID)
	}

	// Событие несёт только ID подписки, детали забираем у провайдера.
	providerSub, err := s.provider.GetSubscription(ctx, session.Subscription)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	sub := models.Subscription{
		UserID:                userID,
		PaymentCustomerID:     providerSub.Customer,
		PaymentSubscriptionID: optional(providerSub.ID),
		Status:                providerSub.Status,
		PriceID:               optional(providerSub.FirstPriceID()),
		CurrentPeriodEnd:      periodEnd(providerSub.CurrentPeriodEnd),
	}

	created, err := s.repo.CreateSubscription(ctx, sub)
	if errors.Is(err, repository.ErrAlreadyExists) {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultDuplicate).Inc()
		s.log.Warn("subscription already exists", slog.String("op", op), slog.String("provider_subscription_id", providerSub.ID))
		return nil
	}
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultApplied).Inc()
	s.log.Info("created subscription from checkout", slog.String("subscription_id", created.ID), slog.String("user_id", userID))

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		// Подписка сохранена, уведомление отправить некому.
		s.log.Error("failed to load user for subscription notification", sl.Err(err))
		return nil
	}

	// Без price ID тариф не определить, уведомление не отправляем.
	if created.PriceID == nil {
		s.log.Warn("subscription has no price id, skipping notification", slog.String("op", op), slog.String("subscription_id", created.ID))
		return nil
	}

	planName := plans.PlanName(*created.PriceID)
	go func(email string, name *string, planName string) {
		if err := s.notifier.SendSubscriptionConfirmed(email, name, planName); err != nil {
			s.log.Error("failed to send subscription notification", sl.Err(err))
		}
	}(user.Email, user.Name, planName)

	return nil
}

func (s *Service) applySubscriptionUpdated(ctx context.Context, evt *paymentprovider.Event) error {
	const op = "billing.applySubscriptionUpdated"

	var providerSub paymentprovider.Subscription
	if err := json.Unmarshal(evt.Data.Object, &providerSub); err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.repo.UpdateSubscriptionByProviderID(ctx, providerSub.ID,
		providerSub.Status, optional(providerSub.FirstPriceID()), periodEnd(providerSub.CurrentPeriodEnd))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		// Подписка ещё не создана или заведена не через checkout.
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultNoop).Inc()
		s.log.Warn("update matched no subscription", slog.String("op", op), slog.String("provider_subscription_id", providerSub.ID))
		return nil
	}
	metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultApplied).Inc()
	return nil
}

func (s *Service) applySubscriptionDeleted(ctx context.Context, evt *paymentprovider.Event) error {
	const op = "billing.applySubscriptionDeleted"

	var providerSub paymentprovider.Subscription
	if err := json.Unmarshal(evt.Data.Object, &providerSub); err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	// Строка остаётся с историей платёжных идентификаторов, меняется только статус.
	rows, err := s.repo.CancelSubscriptionByProviderID(ctx, providerSub.ID)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultFailed).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultNoop).Inc()
		s.log.Warn("cancel matched no subscription", slog.String("op", op), slog.String("provider_subscription_id", providerSub.ID))
		return nil
	}
	metrics.WebhookEvents.WithLabelValues(metrics.ProviderPayment, evt.Type, metrics.ResultApplied).Inc()
	return nil
}

// CreateCheckout создаёт у провайдера checkout-сессию для выбранного тарифа
// и возвращает URL страницы оплаты. Локальный ID пользователя кладётся в
// metadata сессии и возвращается в webhook-событии завершения оплаты.
func (s *Service) CreateCheckout(ctx context.Context, user *models.User, priceID string) (string, error) {
	const op = "billing.CreateCheckout"

	session, err := s.provider.CreateCheckoutSession(ctx, paymentprovider.CreateCheckoutSessionRequest{
		PriceID:       priceID,
		SuccessURL:    s.appURL + "/dashboard?checkout=success",
		CancelURL:     s.appURL + "/pricing?checkout=canceled",
		CustomerEmail: user.Email,
		Metadata:      map[string]string{"userId": user.ID},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return session.URL, nil
}

// periodEnd переводит unix-секунды провайдера в *time.Time, 0 — nil.
func periodEnd(unix int64) *time.Time {
	if unix == 0 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
