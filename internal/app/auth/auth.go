// Package auth собирает gRPC-сервис аутентификации.
package auth

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"

	"github.com/ibizainsider/entitlement-service/internal/config"
	authpb "github.com/ibizainsider/entitlement-service/internal/grpc/gen"
	"github.com/ibizainsider/entitlement-service/internal/grpc/server"
	"github.com/ibizainsider/entitlement-service/internal/lib/jwt"
	authservices "github.com/ibizainsider/entitlement-service/internal/services/auth"
	"github.com/ibizainsider/entitlement-service/internal/storage/repository"
)

// App — gRPC-приложение сервиса аутентификации.
type App struct {
	grpcServer *grpc.Server
	listener   net.Listener
	logger     *slog.Logger
}

// New собирает приложение: хранилище, JWT-генератор и gRPC-сервер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservices.NewAuthService(db, jwtMaker)

	lis, err := net.Listen("tcp", cfg.GRPCAuthAddress)
	if err != nil {
		return nil, err
	}

	grpcServer := grpc.NewServer()

	authpb.RegisterAuthServiceServer(grpcServer, server.NewAuthServer(authService, logger))

	return &App{
		grpcServer: grpcServer,
		listener:   lis,
		logger:     logger,
	}, nil
}

// Run запускает gRPC-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("Auth gRPC service listening on", slog.String("address", a.listener.Addr().String()))
		errCh <- a.grpcServer.Serve(a.listener)
	}()

	select {
	case <-ctx.Done():
		a.grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
