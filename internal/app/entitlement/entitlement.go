package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/ibizainsider/entitlement-service/internal/api/handlers/health"
	"github.com/ibizainsider/entitlement-service/internal/cache"
	"github.com/ibizainsider/entitlement-service/internal/config"
	"github.com/ibizainsider/entitlement-service/internal/digestprovider"
	"github.com/ibizainsider/entitlement-service/internal/grpc/client"
	"github.com/ibizainsider/entitlement-service/internal/migrations"
	"github.com/ibizainsider/entitlement-service/internal/rabbitmq"
	"github.com/ibizainsider/entitlement-service/internal/services/access"
	digestservice "github.com/ibizainsider/entitlement-service/internal/services/digest"
	promoservice "github.com/ibizainsider/entitlement-service/internal/services/promo"
	"github.com/ibizainsider/entitlement-service/internal/storage/repository"
)

// App — основное HTTP-приложение entitlement-сервиса.
type App struct {
	server     *http.Server
	logger     *slog.Logger
	db         *repository.Storage
	rabbitConn *amqp.Connection
	rabbitCh   *amqp.Channel
}

// New собирает приложение: хранилище, миграции, кеш, брокер событий,
// gRPC-клиент аутентификации, сервисы и HTTP-сервер.
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

	rabbitConn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	rabbitCh, err := rabbitmq.SetupChannel(rabbitConn, rabbitmq.GetEntitlementQueues())
	if err != nil {
		rabbitConn.Close()
		return nil, err
	}

	authClient, err := client.NewAuthClient(cfg.GRPCAuthAddress)
	if err != nil {
		return nil, err
	}

	promoValidator := promoservice.NewValidator(db, logger)
	events := rabbitmq.NewGrantedPublisher(rabbitCh)
	gate := access.NewGate(db, promoValidator, cacheRedis, events, logger, cfg.StorageTimeout)

	gatewayClient := digestprovider.NewClient(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.GatewayModel)
	digestService := digestservice.NewService(gatewayClient, cacheRedis, logger, cfg.DigestTTL)

	healthHandler := health.New(logger, db, rabbitConn, cacheRedis)

	router := chi.NewRouter()

	RegisterRoutes(router, logger, authClient, gate, promoValidator, digestService, healthHandler, cfg.WebhookSecret)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		logger:     logger,
		db:         db,
		rabbitConn: rabbitConn,
		rabbitCh:   rabbitCh,
	}, nil
}

// Run запускает HTTP-сервер и корректно останавливает его при отмене контекста.
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
		if cerr := a.rabbitCh.Close(); cerr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", cerr))
		}
		if cerr := a.rabbitConn.Close(); cerr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", cerr))
		}
		a.db.DB.Close()
		return err
	}
}
