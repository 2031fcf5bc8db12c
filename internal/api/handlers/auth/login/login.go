// Package login реализует HTTP-обработчик входа пользователей.
package login

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/ibizainsider/entitlement-service/internal/api/response"
	authpb "github.com/ibizainsider/entitlement-service/internal/grpc/gen"
	"github.com/ibizainsider/entitlement-service/internal/lib/sl"
)

// Request — входные данные для входа
type Request struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthService определяет методы бизнес-логики для входа пользователей.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*authpb.LoginResponse, error)
}

// Handler обрабатывает HTTP-запросы входа пользователей.
type Handler struct {
	log        *slog.Logger
	authClient AuthService
	validate   *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, authClient AuthService) *Handler {
	return &Handler{
		log:        log,
		authClient: authClient,
		validate:   validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход пользователя
// @Description Проверяет учетные данные и возвращает JWT
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные"
// @Success 200 {object} response.OKResponse "Успешный вход"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации данных"
// @Router /login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

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

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	resp, err := h.authClient.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		log.Error("login failed", slog.String("username", req.Username), sl.Err(err))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid credentials"))
		return
	}

	log.Info("login success", slog.String("username", req.Username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":    resp.Token,
		"role":     resp.Role,
		"user_uid": resp.Useruid,
	}))
}
