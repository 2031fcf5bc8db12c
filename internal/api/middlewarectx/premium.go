package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/ibizainsider/entitlement-service/internal/api/response"
	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
)

// EntitlementChecker описывает строгую проверку премиум-доступа.
type EntitlementChecker interface {
	Check(ctx context.Context, userUID string) (bool, error)
}

// PremiumMiddleware создает middleware, которое пропускает дальше только
// пользователей с премиум-доступом. Сбой проверки закрывает доступ, а не
// открывает его.
func PremiumMiddleware(log *slog.Logger, gate EntitlementChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userUID, ok := r.Context().Value(UserUID).(string)
			if !ok || userUID == "" {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			hasPremium, err := gate.Check(r.Context(), userUID)
			if err != nil {
				log.Error("failed to check premium access", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			if !hasPremium {
				log.Info("premium access denied", slog.String("user_uid", userUID))
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("premium access required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
