// Package health реализует диагностический HTTP-обработчик состояния сервиса.
//
// Статус healthy — заполнена вся конфигурация и доступна база; degraded —
// база доступна и заданы ключевые секреты, но часть интеграций не
// сконфигурирована; unhealthy — база недоступна.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/saas-sync/internal/config"
	"github.com/magabrotheeeer/saas-sync/internal/http/response"
	"github.com/magabrotheeeer/saas-sync/internal/lib/sl"
)

// Pinger описывает проверку соединения с базой.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler управляет HTTP-запросами состояния сервиса.
type Handler struct {
	log     *slog.Logger
	cfg     *config.Config
	storage Pinger
}

// New создает новый Handler с переданными логгером, конфигом и хранилищем.
func New(log *slog.Logger, cfg *config.Config, storage Pinger) *Handler {
	return &Handler{
		log:     log,
		cfg:     cfg,
		storage: storage,
	}
}

type databaseStatus struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// ServeHTTP godoc
// @Summary Проверить состояние сервиса
// @Description Возвращает статус healthy/degraded/unhealthy, флаги конфигурации и доступность базы.
// @Tags Debug
// @Produce  json
// @Success 200 {object} response.SuccessResponse "Состояние сервиса"
// @Router /api/v1/debug/health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	status := h.cfg.ConfigStatus()

	db := databaseStatus{Connected: true}
	if err := h.storage.Ping(r.Context()); err != nil {
		h.log.Error("database ping failed", slog.String("op", op), sl.Err(err))
		db.Connected = false
		db.Error = err.Error()
	}

	overall := "unhealthy"
	switch {
	case db.Connected && status.Database && status.IdentityProvider && status.IdentityWebhook &&
		status.PaymentProvider && status.PaymentWebhook && status.SMTP && status.AppURL:
		overall = "healthy"
	case db.Connected && status.Database && status.IdentityProvider:
		overall = "degraded"
	}

	render.JSON(w, r, response.Success(map[string]any{
		"status":    overall,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"env":       status,
		"services": map[string]any{
			"database": db,
		},
	}))
}
