package models

import "time"

// Статусы подписки, приходящие от платёжного провайдера.
// Строка status хранится как есть, Canceled используется при
// обработке события удаления подписки.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusInactive = "inactive"
)

// Subscription представляет платёжное состояние пользователя.
// Строка создаётся только после завершённого checkout; при событии
// удаления подписки строка сохраняется, меняется только статус.
type Subscription struct {
	ID                    string     `json:"id"`                    // Локальный идентификатор (uuid)
	UserID                string     `json:"userId"`                // Владелец, внешний ключ на users.id
	PaymentCustomerID     string     `json:"paymentCustomerId"`     // Идентификатор клиента у платёжного провайдера, уникален
	PaymentSubscriptionID *string    `json:"paymentSubscriptionId"` // Идентификатор подписки у провайдера, уникален
	Status                string     `json:"status"`                // active / past_due / canceled / inactive
	PriceID               *string    `json:"priceId"`               // Идентификатор тарифа
	CurrentPeriodEnd      *time.Time `json:"currentPeriodEnd"`      // Конец текущего платёжного периода
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}
