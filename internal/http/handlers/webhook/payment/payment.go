// Package payment реализует HTTP-обработчик webhook-событий платёжного
// провайдера.
//
// Handler проверяет подпись из заголовка Stripe-Signature над сырым телом
// запроса, отбрасывает повторные доставки по отметке в redis и передаёт
// событие биллингу. Провайдер повторяет доставку при любом ответе,
// кроме 2xx.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/saas-sync/internal/lib/sl"
	"github.com/magabrotheeeer/saas-sync/internal/lib/webhooksig"
	"github.com/magabrotheeeer/saas-sync/internal/metrics"
	"github.com/magabrotheeeer/saas-sync/internal/paymentprovider"
	"github.com/magabrotheeeer/saas-sync/internal/services/billing"
)

// Service описывает интерфейс биллингового реконсилера.
type Service interface {
	ProcessEvent(ctx context.Context, evt *paymentprovider.Event) error
}

// EventDeduper описывает отметки об обработанных событиях.
type EventDeduper interface {
	SeenEvent(ctx context.Context, provider, eventID string) (bool, error)
	MarkEvent(ctx context.Context, provider, eventID string) error
}

// Handler управляет HTTP-запросами webhook-событий платёжного провайдера.
type Handler struct {
	log      *slog.Logger
	service  Service
	verifier *webhooksig.PaymentVerifier
	deduper  EventDeduper
}

// New создает новый Handler с переданными логгером, сервисом и верификатором.
func New(log *slog.Logger, service Service, verifier *webhooksig.PaymentVerifier, deduper EventDeduper) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		verifier: verifier,
		deduper:  deduper,
	}
}

// ServeHTTP godoc
// @Summary Принять webhook платёжного провайдера
// @Description Проверяет подпись Stripe-Signature и применяет событие подписки.
// @Tags Webhooks
// @Accept  json
// @Produce  plain
// @Success 200 {string} string "OK"
// @Failure 400 {string} string "Missing stripe-signature header"
// @Failure 500 {string} string "Internal server error"
// @Router /api/webhooks/payment [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.payment"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Подпись считается по сырым байтам тела, до любого разбора JSON.
	err = h.verifier.Verify(body, r.Header.Get("Stripe-Signature"))
	if errors.Is(err, webhooksig.ErrMissingHeaders) {
		log.Error("missing stripe-signature header")
		http.Error(w, "Missing stripe-signature header", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error("invalid webhook signature", sl.Err(err))
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	var evt paymentprovider.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Событие без id не отмечаем: пустой ключ склеил бы все такие события.
	if evt.ID != "" {
		seen, err := h.deduper.SeenEvent(r.Context(), metrics.ProviderPayment, evt.ID)
		if err != nil {
			log.Warn("failed to check event marker", sl.Err(err))
		}
		if seen {
			log.Info("skipping already processed event", slog.String("event_id", evt.ID))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
			return
		}
	}

	if err := h.service.ProcessEvent(r.Context(), &evt); err != nil {
		if errors.Is(err, billing.ErrMissingCorrelationID) {
			log.Error("checkout session carries no userId", slog.String("type", evt.Type))
			http.Error(w, "No userId in metadata", http.StatusBadRequest)
			return
		}
		log.Error("failed to process payment event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if evt.ID != "" {
		if err := h.deduper.MarkEvent(r.Context(), metrics.ProviderPayment, evt.ID); err != nil {
			log.Warn("failed to mark event as processed", sl.Err(err))
		}
	}

	log.Info("webhook processed successfully", slog.String("type", evt.Type), slog.String("event_id", evt.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
