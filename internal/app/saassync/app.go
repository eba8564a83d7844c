// Package saassync собирает основной HTTP-сервис: хранилище, миграции,
// redis, RabbitMQ, клиент платёжного провайдера, верификаторы подписей
// webhook и маршруты API.
package saassync

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/saas-sync/internal/cache"
	"github.com/magabrotheeeer/saas-sync/internal/config"
	"github.com/magabrotheeeer/saas-sync/internal/lib/sessionjwt"
	"github.com/magabrotheeeer/saas-sync/internal/lib/webhooksig"
	"github.com/magabrotheeeer/saas-sync/internal/migrations"
	"github.com/magabrotheeeer/saas-sync/internal/paymentprovider"
	"github.com/magabrotheeeer/saas-sync/internal/rabbitmq"
	billingservice "github.com/magabrotheeeer/saas-sync/internal/services/billing"
	identityservice "github.com/magabrotheeeer/saas-sync/internal/services/identity"
	notifyservice "github.com/magabrotheeeer/saas-sync/internal/services/notify"
	"github.com/magabrotheeeer/saas-sync/internal/storage/repository"
)

// sessionTTL время жизни сессионного токена.
const sessionTTL = 24 * time.Hour

// App основной HTTP-сервис синхронизации пользователей и подписок.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New инициализирует все зависимости и собирает приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	identityVerifier, err := webhooksig.NewIdentityVerifier(cfg.IdentityWebhookSecret)
	if err != nil {
		return nil, err
	}
	paymentVerifier := webhooksig.NewPaymentVerifier(cfg.PaymentWebhookSecret)

	providerClient := paymentprovider.NewClient(cfg.PaymentSecretKey)
	tokenMaker := sessionjwt.NewMaker(cfg.SessionSecret, sessionTTL)

	notifier := notifyservice.NewService(ch)
	identitySvc := identityservice.NewService(db, notifier, logger)
	billingSvc := billingservice.NewService(db, providerClient, notifier, cfg.AppURL, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, db, cacheRedis, tokenMaker,
		identityVerifier, paymentVerifier, identitySvc, billingSvc)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.ch.Close(); closeErr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", closeErr))
		}
		if closeErr := a.conn.Close(); closeErr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", closeErr))
		}
		a.db.DB.Close()
		return err
	}
}
