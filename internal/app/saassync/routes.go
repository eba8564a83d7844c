package saassync

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/saas-sync/internal/cache"
	"github.com/magabrotheeeer/saas-sync/internal/config"
	"github.com/magabrotheeeer/saas-sync/internal/http/handlers/checkout"
	"github.com/magabrotheeeer/saas-sync/internal/http/handlers/health"
	"github.com/magabrotheeeer/saas-sync/internal/http/handlers/userme"
	webhookidentity "github.com/magabrotheeeer/saas-sync/internal/http/handlers/webhook/identity"
	webhookpayment "github.com/magabrotheeeer/saas-sync/internal/http/handlers/webhook/payment"
	"github.com/magabrotheeeer/saas-sync/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-sync/internal/lib/sessionjwt"
	"github.com/magabrotheeeer/saas-sync/internal/lib/webhooksig"
	billingservice "github.com/magabrotheeeer/saas-sync/internal/services/billing"
	identityservice "github.com/magabrotheeeer/saas-sync/internal/services/identity"
	"github.com/magabrotheeeer/saas-sync/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	db *repository.Storage, cacheRedis *cache.Cache, tokenMaker *sessionjwt.Maker,
	identityVerifier *webhooksig.IdentityVerifier, paymentVerifier *webhooksig.PaymentVerifier,
	identitySvc *identityservice.Service, billingSvc *billingservice.Service,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	// Webhook-эндпоинты без аутентификации: подлинность подтверждает подпись
	r.Route("/api/webhooks", func(r chi.Router) {
		r.Post("/identity", webhookidentity.New(logger, identitySvc, identityVerifier, cacheRedis).ServeHTTP)
		r.Post("/payment", webhookpayment.New(logger, billingSvc, paymentVerifier, cacheRedis).ServeHTTP)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Группа с аутентификацией по сессионному токену
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.AuthMiddleware(tokenMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/checkout", checkout.New(logger, identitySvc, billingSvc).ServeHTTP)
			r.Get("/users/me", userme.New(logger, identitySvc).ServeHTTP)
		})

		r.Get("/debug/health", health.New(logger, cfg, db).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
