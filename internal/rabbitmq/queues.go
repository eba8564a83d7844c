package rabbitmq

// NotificationsExchange exchange для всех почтовых уведомлений.
const NotificationsExchange = "notifications"

// Очереди и ключи маршрутизации уведомлений.
const (
	WelcomeQueue           = "notifications.welcome"
	WelcomeRoutingKey      = "welcome"
	SubscriptionQueue      = "notifications.subscription"
	SubscriptionRoutingKey = "subscription"
)

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые слушает воркер-отправитель.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: WelcomeQueue, RoutingKey: WelcomeRoutingKey},
		{QueueName: SubscriptionQueue, RoutingKey: SubscriptionRoutingKey},
	}
}
