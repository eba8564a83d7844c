// Package checkout реализует HTTP-обработчик создания checkout-сессии
// платёжного провайдера.
//
// Handler принимает JSON-запрос с идентификатором тарифа, валидирует его,
// гарантирует наличие локальной записи пользователя через JIT-провижининг
// и возвращает URL страницы оплаты в JSON-формате.
package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/saas-sync/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-sync/internal/http/response"
	"github.com/magabrotheeeer/saas-sync/internal/lib/sl"
	"github.com/magabrotheeeer/saas-sync/internal/models"
)

// UserProvisioner описывает JIT-провижининг пользователя.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, ident *models.Identity) (*models.UserWithSubscription, error)
}

// Service описывает интерфейс создания checkout-сессии.
type Service interface {
	CreateCheckout(ctx context.Context, user *models.User, priceID string) (string, error)
}

// Request тело запроса на создание checkout-сессии.
type Request struct {
	PriceID string `json:"priceId" validate:"required,min=1"`
}

// Handler управляет HTTP-запросами на создание checkout-сессий.
type Handler struct {
	log         *slog.Logger
	provisioner UserProvisioner
	service     Service
	validate    *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисами.
func New(log *slog.Logger, provisioner UserProvisioner, service Service) *Handler {
	return &Handler{
		log:         log,
		provisioner: provisioner,
		service:     service,
		validate:    validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать checkout-сессию
// @Description Создает у платёжного провайдера сессию оплаты выбранного тарифа и возвращает URL страницы оплаты.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор тарифа"
// @Success 200 {object} response.SuccessResponse "URL страницы оплаты"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка создания сессии"
// @Security BearerAuth
// @Router /api/v1/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	user, err := h.provisioner.EnsureUser(r.Context(), ident)
	if err != nil {
		log.Error("failed to ensure user", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create checkout session"))
		return
	}

	url, err := h.service.CreateCheckout(r.Context(), &user.User, req.PriceID)
	if err != nil {
		log.Error("failed to create checkout session", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create checkout session"))
		return
	}

	log.Info("checkout session created", slog.String("user_id", user.ID), slog.String("price_id", req.PriceID))
	render.JSON(w, r, response.Success(map[string]any{
		"url": url,
	}))
}
