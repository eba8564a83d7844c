// Package plans описывает каталог тарифов. Список должен соответствовать
// продуктам и ценам, заведённым у платёжного провайдера.
package plans

// Plan один тариф из каталога.
type Plan struct {
	ID          string
	Name        string
	Description string
	PriceID     string // Идентификатор цены у платёжного провайдера
}

var plans = []Plan{
	{
		ID:          "starter",
		Name:        "Starter",
		Description: "The complete SaaS foundation",
		PriceID:     "price_starter",
	},
	{
		ID:          "pro",
		Name:        "Pro",
		Description: "Insights and automation for a growing SaaS",
		PriceID:     "price_pro",
	},
}

// ByPriceID возвращает тариф по идентификатору цены провайдера.
func ByPriceID(priceID string) (Plan, bool) {
	for _, plan := range plans {
		if plan.PriceID == priceID {
			return plan, true
		}
	}
	return Plan{}, false
}

// PlanName возвращает имя тарифа по идентификатору цены.
// Пустой идентификатор — "Free", неизвестный — "Unknown Plan".
func PlanName(priceID string) string {
	if priceID == "" {
		return "Free"
	}
	if plan, ok := ByPriceID(priceID); ok {
		return plan.Name
	}
	return "Unknown Plan"
}
