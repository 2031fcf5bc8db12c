// Package register реализует HTTP-обработчик для регистрации новых пользователей.
//
// Регистрация принимает необязательный промокод. Ошибка промокода никогда
// не отменяет регистрацию: пользователь создается, а причина отказа
// возвращается в поле promo_warning.
package register

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/ibizainsider/entitlement-service/internal/api/response"
	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
	"github.com/ibizainsider/entitlement-service/internal/models"
	"github.com/ibizainsider/entitlement-service/internal/services/access"
	"github.com/ibizainsider/entitlement-service/internal/services/promo"
	"github.com/ibizainsider/entitlement-service/internal/storage/repository"
)

// Request — входные данные для регистрации
type Request struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Password  string `json:"password" validate:"required,min=6"`
	Email     string `json:"email" validate:"required,email"`
	PromoCode string `json:"promo_code,omitempty"`
}

// AuthService определяет методы бизнес-логики для работы с пользователями.
type AuthService interface {
	Register(ctx context.Context, email, username, password string) (string, error)
}

// AccessGate обрабатывает промокод после создания пользователя.
type AccessGate interface {
	OnSignup(ctx context.Context, identity models.Identity, rawPromoCode string) access.SignupResult
}

// Handler обрабатывает HTTP-запросы регистрации пользователей.
type Handler struct {
	log        *slog.Logger
	authClient AuthService
	gate       AccessGate
	validate   *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, authClient AuthService, gate AccessGate) *Handler {
	return &Handler{
		log:        log,
		authClient: authClient,
		gate:       gate,
		validate:   validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация нового пользователя
// @Description Создает нового пользователя и погашает необязательный промокод
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные нового пользователя"
// @Success 200 {object} response.OKResponse "Успешная регистрация"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации данных"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при регистрации"
// @Router /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.String("username", req.Username))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	userUID, err := h.authClient.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to register user"))
		return
	}

	// Пользователь уже создан, судьба промокода на это не влияет.
	identity := models.Identity{UID: userUID, Email: req.Email}
	result := h.gate.OnSignup(r.Context(), identity, req.PromoCode)

	data := map[string]any{
		"message":         "user created successfully",
		"username":        req.Username,
		"email":           req.Email,
		"premium_granted": result.PremiumGranted,
	}
	if result.PromoErr != nil {
		data["promo_warning"] = promoWarning(result.PromoErr)
	}

	log.Info("register success",
		slog.String("username", req.Username),
		slog.Bool("premium_granted", result.PremiumGranted))
	render.JSON(w, r, response.OKWithData(data))
}

// promoWarning переводит причину отказа по промокоду в сообщение для
// пользователя. Сбой хранилища не раскрывает внутреннюю цепочку ошибок,
// пользователю предлагается повторить позже.
func promoWarning(err error) string {
	switch {
	case errors.Is(err, promo.ErrMalformedCode):
		return "promo code is malformed"
	case errors.Is(err, repository.ErrPromoNotFound):
		return "invalid promo code"
	case errors.Is(err, repository.ErrPromoInactive):
		return "promo code is no longer active"
	case errors.Is(err, repository.ErrPromoExhausted):
		return "promo code has reached its usage limit"
	default:
		return "promo code could not be applied, please try again later"
	}
}
