// Package sender собирает воркер отправки приветственных писем.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/ibizainsider/entitlement-service/internal/config"
	"github.com/ibizainsider/entitlement-service/internal/lib/smtp"
	"github.com/ibizainsider/entitlement-service/internal/rabbitmq"
	senderservice "github.com/ibizainsider/entitlement-service/internal/services/sender"
)

// App — приложение-потребитель событий о выдаче премиум-доступа.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

// New собирает приложение: подключение к RabbitMQ, топология очередей и SMTP-транспорт.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	queues := rabbitmq.GetEntitlementQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		conn.Close()
		return nil, err
	}

	newTransport := smtp.NewTransport(cfg.SMTPConnection, logger)
	senderService := senderservice.NewSenderService(logger, newTransport)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run подписывается на очередь событий и работает до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, "entitlements.granted", a.senderService.SendPremiumWelcome)
	if err != nil {
		a.logger.Error("failed to start entitlements.granted consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
