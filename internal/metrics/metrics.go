// Package metrics объявляет счётчики prometheus для наблюдаемости
// реконсиляции. Тихие no-op'ы (событие обновления без строки, повторная
// доставка) считаются здесь, а не проглатываются молча.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения метки result счётчика webhook-событий.
const (
	ResultApplied   = "applied"   // Событие изменило состояние хранилища
	ResultDuplicate = "duplicate" // Повторная доставка уже применённого события
	ResultNoop      = "noop"      // Обновление/удаление не нашло строку
	ResultIgnored   = "ignored"   // Тип события не обрабатывается
	ResultFailed    = "failed"    // Обработка завершилась ошибкой
)

// Имена провайдеров в метках.
const (
	ProviderIdentity = "identity"
	ProviderPayment  = "payment"
)

// WebhookEvents счётчик обработанных webhook-событий по провайдеру,
// типу события и результату.
var WebhookEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Processed webhook events by provider, event type and outcome.",
	},
	[]string{"provider", "type", "result"},
)
