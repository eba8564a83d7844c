package models

// WelcomeNotification сообщение для очереди notifications.welcome,
// отправляется после успешного создания пользователя.
type WelcomeNotification struct {
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// SubscriptionNotification сообщение для очереди notifications.subscription,
// отправляется после успешного создания подписки.
type SubscriptionNotification struct {
	Email    string  `json:"email"`
	Name     *string `json:"name"`
	PlanName string  `json:"plan_name"`
}
