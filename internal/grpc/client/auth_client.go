// Package client содержит gRPC клиент сервиса аутентификации.
package client

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	authpb "github.com/ibizainsider/entitlement-service/internal/grpc/gen"
)

// AuthClient оборачивает соединение с сервисом аутентификации.
type AuthClient struct {
	conn   *grpc.ClientConn
	client authpb.AuthServiceClient
}

// NewAuthClient устанавливает соединение с сервисом аутентификации.
func NewAuthClient(addr string) (*AuthClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock())
	if err != nil {
		return nil, err
	}

	c := authpb.NewAuthServiceClient(conn)
	return &AuthClient{conn: conn, client: c}, nil
}

// Close закрывает соединение.
func (a *AuthClient) Close() error {
	return a.conn.Close()
}

// Register создает нового пользователя и возвращает его UID.
func (a *AuthClient) Register(ctx context.Context, email, username, password string) (string, error) {
	resp, err := a.client.Register(ctx, &authpb.RegisterRequest{
		Email:    email,
		Username: username,
		Password: password,
	})
	if err != nil {
		return "", err
	}
	return resp.Useruid, nil
}

// Login проверяет учетные данные и возвращает JWT с ролью и UID пользователя.
func (a *AuthClient) Login(ctx context.Context, username, password string) (*authpb.LoginResponse, error) {
	return a.client.Login(ctx, &authpb.LoginRequest{
		Username: username,
		Password: password,
	})
}

// ValidateToken проверяет JWT и возвращает данные пользователя.
func (a *AuthClient) ValidateToken(ctx context.Context, token string) (*authpb.ValidateTokenResponse, error) {
	return a.client.ValidateToken(ctx, &authpb.ValidateTokenRequest{
		Token: token,
	})
}
