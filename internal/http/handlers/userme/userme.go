// Package userme реализует HTTP-обработчик получения текущего пользователя
// вместе с его подпиской. Первое обращение новой личности создаёт локальную
// запись (JIT-провижининг).
package userme

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/saas-sync/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-sync/internal/http/response"
	"github.com/magabrotheeeer/saas-sync/internal/lib/sl"
	"github.com/magabrotheeeer/saas-sync/internal/models"
)

// UserProvisioner описывает JIT-провижининг пользователя.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, ident *models.Identity) (*models.UserWithSubscription, error)
}

// Handler управляет HTTP-запросами на получение текущего пользователя.
type Handler struct {
	log         *slog.Logger
	provisioner UserProvisioner
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, provisioner UserProvisioner) *Handler {
	return &Handler{
		log:         log,
		provisioner: provisioner,
	}
}

// ServeHTTP godoc
// @Summary Получить текущего пользователя
// @Description Возвращает локальную запись пользователя с подпиской, создавая её при первом обращении.
// @Tags Users
// @Produce  json
// @Success 200 {object} response.SuccessResponse "Пользователь с подпиской"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Security BearerAuth
// @Router /api/v1/users/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.userme"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	ident, ok := middlewarectx.IdentityFromContext(r.Context())
	if !ok {
		log.Error("identity not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("Unauthorized"))
		return
	}

	user, err := h.provisioner.EnsureUser(r.Context(), ident)
	if err != nil {
		log.Error("failed to ensure user", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load user"))
		return
	}

	render.JSON(w, r, response.Success(user))
}
