// Package identity реализует HTTP-обработчик webhook-событий
// identity-провайдера.
//
// Handler читает сырое тело запроса, проверяет подпись по заголовкам
// svix-id, svix-timestamp и svix-signature, отбрасывает повторные
// доставки по отметке в redis и передаёт событие реконсилеру.
// Провайдер повторяет доставку при любом ответе, кроме 2xx.
package identity

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
	"github.com/magabrotheeeer/saas-sync/internal/models"
	identitysvc "github.com/magabrotheeeer/saas-sync/internal/services/identity"
)

// Service описывает интерфейс реконсилера identity-событий.
type Service interface {
	ProcessEvent(ctx context.Context, evt *models.IdentityEvent) error
}

// EventDeduper описывает отметки об обработанных событиях.
type EventDeduper interface {
	SeenEvent(ctx context.Context, provider, eventID string) (bool, error)
	MarkEvent(ctx context.Context, provider, eventID string) error
}

// Handler управляет HTTP-запросами webhook-событий identity-провайдера.
type Handler struct {
	log      *slog.Logger
	service  Service
	verifier *webhooksig.IdentityVerifier
	deduper  EventDeduper
}

// New создает новый Handler с переданными логгером, сервисом и верификатором.
func New(log *slog.Logger, service Service, verifier *webhooksig.IdentityVerifier, deduper EventDeduper) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		verifier: verifier,
		deduper:  deduper,
	}
}

// ServeHTTP godoc
// @Summary Принять webhook identity-провайдера
// @Description Проверяет подпись svix и применяет событие user.created/updated/deleted.
// @Tags Webhooks
// @Accept  json
// @Produce  plain
// @Success 200 {string} string "OK"
// @Failure 400 {string} string "Missing svix headers"
// @Failure 500 {string} string "Internal server error"
// @Router /api/webhooks/identity [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.identity"
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

	svixID := r.Header.Get("svix-id")
	err = h.verifier.Verify(body,
		svixID,
		r.Header.Get("svix-timestamp"),
		r.Header.Get("svix-signature"),
	)
	if errors.Is(err, webhooksig.ErrMissingHeaders) {
		log.Error("missing svix headers")
		http.Error(w, "Missing svix headers", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error("invalid webhook signature", sl.Err(err))
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	// Отметка в redis отсекает повторные доставки до похода в хранилище.
	// Ошибка redis не повод отвергать событие: вставки идемпотентны.
	seen, err := h.deduper.SeenEvent(r.Context(), metrics.ProviderIdentity, svixID)
	if err != nil {
		log.Warn("failed to check event marker", sl.Err(err))
	}
	if seen {
		log.Info("skipping already processed event", slog.String("event_id", svixID))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
		return
	}

	var evt models.IdentityEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.service.ProcessEvent(r.Context(), &evt); err != nil {
		if errors.Is(err, identitysvc.ErrMissingEmail) {
			log.Error("event carries no email", slog.String("type", evt.Type))
			http.Error(w, "No email found", http.StatusBadRequest)
			return
		}
		// Не-2xx заставит провайдера повторить доставку позже.
		log.Error("failed to process identity event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := h.deduper.MarkEvent(r.Context(), metrics.ProviderIdentity, svixID); err != nil {
		log.Warn("failed to mark event as processed", sl.Err(err))
	}

	log.Info("webhook processed successfully", slog.String("type", evt.Type), slog.String("event_id", svixID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
