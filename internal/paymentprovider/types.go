package paymentprovider

import "encoding/json"

// Типы webhook-событий, которые обрабатывает реконсилер подписок.
// Checkout в режиме разовой оплаты игнорируется.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// ModeSubscription режим checkout-сессии с регулярными списаниями.
const ModeSubscription = "subscription"

// Event конверт webhook-события платёжного провайдера.
// Object декодируется по месту в зависимости от типа события.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData полезная нагрузка события.
type EventData struct {
	Object json.RawMessage `json:"object"`
}

// CheckoutSession checkout-сессия провайдера.
type CheckoutSession struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Subscription string            `json:"subscription"` // Ссылка на подписку, пустая в режиме разовой оплаты
	URL          string            `json:"url"`
	Metadata     map[string]string `json:"metadata"` // Несёт корреляционный userId
}

// Subscription подписка на стороне провайдера.
type Subscription struct {
	ID               string               `json:"id"`
	Customer         string               `json:"customer"`
	Status           string               `json:"status"`
	CurrentPeriodEnd int64                `json:"current_period_end"` // Unix-секунды, ноль — нет даты
	Items            SubscriptionItemList `json:"items"`
}

// SubscriptionItemList список позиций подписки.
type SubscriptionItemList struct {
	Data []SubscriptionItem `json:"data"`
}

// SubscriptionItem одна позиция подписки.
type SubscriptionItem struct {
	Price Price `json:"price"`
}

// Price цена (тариф) позиции.
type Price struct {
	ID string `json:"id"`
}

// FirstPriceID возвращает идентификатор цены первой позиции или пустую строку.
func (s *Subscription) FirstPriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

// CreateCheckoutSessionRequest параметры создания checkout-сессии.
type CreateCheckoutSessionRequest struct {
	PriceID       string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string            // Предзаполняется из локальной записи пользователя
	Metadata      map[string]string // Должен содержать userId для корреляции
}
