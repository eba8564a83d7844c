// Package notify публикует уведомления пользователей в RabbitMQ.
// Отправкой писем занимается отдельный сервис notification-sender.
package notify

import (
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/saas-sync/internal/models"
	"github.com/magabrotheeeer/saas-sync/internal/rabbitmq"
)

// Service публикует сообщения в exchange уведомлений.
type Service struct {
	ch *amqp.Channel
}

// NewService создает новый экземпляр Service.
func NewService(ch *amqp.Channel) *Service {
	return &Service{ch: ch}
}

// SendWelcome ставит в очередь приветственное письмо новому пользователю.
func (s *Service) SendWelcome(email string, name *string) error {
	const op = "notify.SendWelcome"

	msg := models.WelcomeNotification{
		Email: email,
		Name:  name,
	}
	if err := rabbitmq.PublishMessage(s.ch, rabbitmq.NotificationsExchange, rabbitmq.WelcomeRoutingKey, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SendSubscriptionConfirmed ставит в очередь письмо об оформленной подписке.
func (s *Service) SendSubscriptionConfirmed(email string, name *string, planName string) error {
	const op = "notify.SendSubscriptionConfirmed"

	msg := models.SubscriptionNotification{
		Email:    email,
		Name:     name,
		PlanName: planName,
	}
	if err := rabbitmq.PublishMessage(s.ch, rabbitmq.NotificationsExchange, rabbitmq.SubscriptionRoutingKey, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
