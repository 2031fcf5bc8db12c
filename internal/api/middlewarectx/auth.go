package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/ibizainsider/entitlement-service/internal/api/response"
	authpb "github.com/ibizainsider/entitlement-service/internal/grpc/gen"
	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
)

// AuthService описывает проверку JWT через сервис аутентификации.
type AuthService interface {
	ValidateToken(ctx context.Context, token string) (*authpb.ValidateTokenResponse, error)
}

// JWTMiddleware возвращает middleware, которое проверяет JWT в заголовке
// Authorization и кладет имя, роль и UID пользователя в контекст запроса.
func JWTMiddleware(log *slog.Logger, authClient AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			resp, err := authClient.ValidateToken(r.Context(), token)
			if err != nil {
				log.Error("token validation failed", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			if !resp.Valid {
				log.Error("token is not valid")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), User, resp.Username)
			ctx = context.WithValue(ctx, Role, resp.Role)
			ctx = context.WithValue(ctx, UserUID, resp.Useruid)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
